package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
)

const maxBodyBytes = 1 << 20

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderLifecycle
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderLifecycle) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 chi 路由上注册所有订单路由
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Post("/", h.placeOrder)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.getOrder)
			r.Get("/diff", h.cartDiff)
			r.Post("/transitions", h.requestTransition)
			r.Post("/verification-code", h.reissueCode)
			r.Post("/stock-check", h.checkStock)
		})
	})
}

func (h *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var evt domain.OrderPlaced
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&evt); err != nil {
		writeBadRequest(w, err)
		return
	}
	order, err := h.service.PlaceOrder(r.Context(), &evt)
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopId")
	if shopID == "" {
		writeBadRequest(w, errors.New("shopId is required"))
		return
	}
	orders, err := h.service.ListOrders(r.Context(), shopID, domain.State(r.URL.Query().Get("status")))
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrderHandler) cartDiff(w http.ResponseWriter, r *http.Request) {
	diff, err := h.service.CartDiff(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	if diff == nil {
		diff = []domain.CartDiffEntry{}
	}
	writeJSON(w, http.StatusOK, diff)
}

func (h *OrderHandler) requestTransition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	evt, err := decodeEvent(req)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	orderID := chi.URLParam(r, "orderID")
	res, err := h.service.RequestTransition(r.Context(), orderID, evt)
	if err != nil {
		writeDomainError(w, r, err, res)
		return
	}
	logger.Ctx(r.Context()).Debug().Str("order_id", orderID).Str("event", req.Event).Msg("transition served")
	writeJSON(w, http.StatusOK, TransitionResponse{
		Order:            toOrderResponse(res.Order),
		Visited:          res.Visited,
		VerificationCode: res.VerificationCode,
	})
}

func (h *OrderHandler) reissueCode(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ReissueVerificationCode(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, err, res)
		return
	}
	writeJSON(w, http.StatusOK, TransitionResponse{
		Order:            toOrderResponse(res.Order),
		VerificationCode: res.VerificationCode,
	})
}

func (h *OrderHandler) checkStock(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CheckStock(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, StockReportResponse{
		Order:        toOrderResponse(report.Order),
		StockChecked: report.StockChecked,
		Unavailable:  report.Unavailable,
	})
}
