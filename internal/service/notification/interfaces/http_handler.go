package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/notification/application"
	"orderflow/internal/service/notification/domain"
	orderdomain "orderflow/internal/service/order/domain"
)

// NotificationResponse 是通知的对外形态
type NotificationResponse struct {
	ID        string            `json:"id"`
	ShopID    string            `json:"shopId"`
	OrderID   string            `json:"orderId"`
	Status    orderdomain.State `json:"status"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
}

type listResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type countResponse struct {
	Affected int64 `json:"affected"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// InboxHandler 封装了收件箱的 HTTP 处理器
type InboxHandler struct {
	service *application.InboxService
}

func NewInboxHandler(service *application.InboxService) *InboxHandler {
	return &InboxHandler{service: service}
}

func (h *InboxHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications/{shopID}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Delete("/", h.deleteAll)
		r.Patch("/read-all", h.markAllRead)
		r.Post("/search", h.search)
		r.Patch("/{id}/read", h.markRead)
		r.Delete("/{id}", h.delete)
	})
}

func (h *InboxHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(items))
}

func (h *InboxHandler) search(w http.ResponseWriter, r *http.Request) {
	var c application.SearchCriteria
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}
	items, err := h.service.Search(r.Context(), chi.URLParam(r, "shopID"), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListResponse(items))
}

func (h *InboxHandler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkRead(r.Context(), chi.URLParam(r, "shopID"), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InboxHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkAllRead(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Affected: n})
}

func (h *InboxHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "shopID"), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InboxHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteAll(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Affected: n})
}

func toListResponse(items []*domain.Notification) listResponse {
	out := listResponse{Notifications: make([]NotificationResponse, 0, len(items))}
	for _, n := range items {
		out.Notifications = append(out.Notifications, NotificationResponse{
			ID:        n.ID,
			ShopID:    n.ShopID,
			OrderID:   n.OrderID,
			Status:    n.Status,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidFilter):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid_filter", Message: err.Error()})
	default:
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("🚨 request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "error", Message: "internal error"})
	}
}
