// internal/service/order/interfaces/dto.go
package interfaces

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
)

// TransitionRequest 是 POST /orders/{orderID}/transitions 的请求体
type TransitionRequest struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// VerificationView 对外展示核销状态，永远不包含核销码本身
type VerificationView struct {
	IssuedAt   time.Time  `json:"issuedAt"`
	Consumed   bool       `json:"consumed"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
}

// OrderResponse 是订单快照的对外形态
type OrderResponse struct {
	ID                    string                        `json:"id"`
	ShopID                string                        `json:"shopId"`
	UserID                string                        `json:"userId"`
	Status                domain.State                  `json:"status"`
	Pending               domain.PendingAction          `json:"pending"`
	Cart                  []domain.CartLine             `json:"cart"`
	ModifiedCart          []domain.CartLine             `json:"modifiedCart,omitempty"`
	ModificationConfirmed bool                          `json:"modificationConfirmed"`
	Proposals             []domain.ModificationProposal `json:"proposals,omitempty"`
	StockChecked          bool                          `json:"stockChecked"`
	OutOfStock            []string                      `json:"outOfStock,omitempty"`
	StockOverridden       bool                          `json:"stockOverridden,omitempty"`
	TotalPrice            decimal.Decimal               `json:"totalPrice"`
	Verification          *VerificationView             `json:"verification,omitempty"`
	PaymentStatus         string                        `json:"paymentStatus,omitempty"`
	CollectionTime        time.Time                     `json:"collectionTime"`
	CancelReason          string                        `json:"cancelReason,omitempty"`
	Version               int64                         `json:"version"`
	CreatedAt             time.Time                     `json:"createdAt"`
	UpdatedAt             time.Time                     `json:"updatedAt"`
}

// TransitionResponse 是一次流转的结果；verificationCode 只在刚签发时出现
type TransitionResponse struct {
	Order            *OrderResponse `json:"order"`
	Visited          []domain.State `json:"visited,omitempty"`
	VerificationCode string         `json:"verificationCode,omitempty"`
}

// StockReportResponse 是显式库存检查的结果
type StockReportResponse struct {
	Order        *OrderResponse `json:"order"`
	StockChecked bool           `json:"stockChecked"`
	Unavailable  []string       `json:"unavailable,omitempty"`
}

// ErrorResponse 统一的错误响应
type ErrorResponse struct {
	Error       string         `json:"error"`
	Message     string         `json:"message,omitempty"`
	Unavailable []string       `json:"unavailable,omitempty"`
	Retry       bool           `json:"retry,omitempty"`
	Order       *OrderResponse `json:"order,omitempty"`
}

func toOrderResponse(o *domain.Order) *OrderResponse {
	if o == nil {
		return nil
	}
	resp := &OrderResponse{
		ID:                    o.ID,
		ShopID:                o.ShopID,
		UserID:                o.UserID,
		Status:                o.Status,
		Pending:               o.Pending(),
		Cart:                  o.Cart,
		ModifiedCart:          o.ModifiedCart,
		ModificationConfirmed: o.ModificationConfirmed,
		Proposals:             o.Proposals,
		StockChecked:          o.StockChecked,
		OutOfStock:            o.OutOfStock,
		StockOverridden:       o.StockOverridden,
		TotalPrice:            o.TotalPrice(),
		PaymentStatus:         o.PaymentStatus,
		CollectionTime:        o.CollectionTime,
		CancelReason:          o.CancelReason,
		Version:               o.Version,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	if v := o.Verification; v != nil {
		resp.Verification = &VerificationView{IssuedAt: v.IssuedAt, Consumed: v.Consumed, ConsumedAt: v.ConsumedAt}
	}
	return resp
}

// decodeEvent 把事件名和 payload 解码为封闭事件集合中的一个具体类型
func decodeEvent(req TransitionRequest) (domain.Event, error) {
	kind, err := domain.ParseEventKind(req.Event)
	if err != nil {
		return nil, err
	}
	var evt domain.Event
	switch kind {
	case domain.EventAccept:
		var e domain.Accept
		err = decodePayload(req.Payload, &e)
		evt = e
	case domain.EventReject:
		var e domain.Reject
		err = decodePayload(req.Payload, &e)
		evt = e
	case domain.EventRequestAlternatives:
		var e domain.RequestAlternatives
		err = decodePayload(req.Payload, &e)
		evt = e
	case domain.EventSubmitAlternativesProposal:
		var e domain.SubmitAlternativesProposal
		err = decodePayload(req.Payload, &e)
		evt = e
	case domain.EventBuyerRespondWithModifiedCart:
		var e domain.BuyerRespondWithModifiedCart
		err = decodePayload(req.Payload, &e)
		evt = e
	case domain.EventConfirmModification:
		evt = domain.ConfirmModification{}
	case domain.EventAdvanceStatus:
		evt = domain.AdvanceStatus{}
	case domain.EventCancel:
		var e domain.Cancel
		err = decodePayload(req.Payload, &e)
		evt = e
	case domain.EventSubmitVerificationCode:
		var e domain.SubmitVerificationCode
		err = decodePayload(req.Payload, &e)
		evt = e
	}
	if err != nil {
		return nil, fmt.Errorf("invalid payload for %s: %w", kind, err)
	}
	return evt, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCheckUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrAlreadyConsumed),
		errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrOrderExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidProposal),
		errors.Is(err, domain.ErrVerificationMismatch),
		errors.Is(err, domain.ErrVerificationRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

// writeDomainError 输出领域错误；被拒绝的流转会带上未改变的订单快照
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, res *application.TransitionResult) {
	status := statusOf(err)
	body := ErrorResponse{
		Error:   application.Outcome(err),
		Message: err.Error(),
		Retry:   errors.Is(err, domain.ErrConcurrentModification),
	}
	var se *domain.StockError
	if errors.As(err, &se) {
		body.Unavailable = se.Unavailable
	}
	if res != nil {
		body.Order = toOrderResponse(res.Order)
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("🚨 request failed")
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}
