// Package handler содержит HTTP-обработчики сервера витрины: представления маршрутов
// клиента и действия пользователя поверх ядра витрины.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/api"
	"github.com/mmeshcher/storefront/internal/auth"
	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/checkout"
	"github.com/mmeshcher/storefront/internal/notify"
	"github.com/mmeshcher/storefront/internal/session"
	"github.com/mmeshcher/storefront/internal/storefront"
	"github.com/mmeshcher/storefront/internal/validation"
)

// Handler реализует HTTP-обработчики сервера витрины.
type Handler struct {
	app    *storefront.App
	logger *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(app *storefront.App, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		app:    app,
		logger: logger,
	}
}

// actionResponse содержит итоговый маршрут и новые уведомления после действия пользователя.
type actionResponse struct {
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Route  string            `json:"route"`
	Toasts []notify.Toast    `json:"toasts"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// respond завершает действие: пишет статус по ошибке, текущий маршрут и накопленные уведомления.
func (h *Handler) respond(w http.ResponseWriter, err error) {
	resp := actionResponse{
		Route:  h.app.Nav.Current(),
		Toasts: h.app.Toasts.Drain(),
	}
	if resp.Toasts == nil {
		resp.Toasts = []notify.Toast{}
	}

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		resp.Error = err.Error()

		var verr *validation.Error
		if errors.As(err, &verr) {
			resp.Fields = verr.Fields
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("action failed", zap.Error(err))
		}
	}

	h.writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnauthenticated),
		errors.Is(err, api.ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrInvalidMethod):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrOTPNotVerified),
		errors.Is(err, session.ErrPhoneNotVerified):
		return http.StatusForbidden
	case errors.Is(err, checkout.ErrInFlight),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoPendingPayment),
		errors.Is(err, auth.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, api.ErrBusiness):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Toasts возвращает и очищает накопленные уведомления.
func (h *Handler) Toasts(w http.ResponseWriter, r *http.Request) {
	toasts := h.app.Toasts.Drain()
	if toasts == nil {
		toasts = []notify.Toast{}
	}
	h.writeJSON(w, http.StatusOK, toasts)
}
