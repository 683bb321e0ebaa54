package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/retailops/orderdesk/internal/order/application"
	"github.com/retailops/orderdesk/internal/order/domain"
	"github.com/retailops/orderdesk/pkg/apperror"
	"github.com/retailops/orderdesk/pkg/httpx"
)

type Handler struct {
	log    *slog.Logger
	engine *application.Engine
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, engine *application.Engine) *Handler {
	return &Handler{
		log:    log,
		engine: engine,
		tracer: otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.createOrder)
	r.Get("/{id}", h.getOrder)
	r.Delete("/{id}", h.cancelOrder)
	r.Get("/reports/account/{id}", h.accountSummary)
	r.Get("/reports/range", h.rangeSummary)
	r.Get("/reports/top", h.topOrders)
	return r
}

type createOrderReq struct {
	AccountID int64                     `json:"account_id"`
	Lines     []application.LineRequest `json:"lines"`
}

type lineResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID        int64           `json:"id"`
	AccountID int64           `json:"account_id"`
	CreatedAt time.Time       `json:"created_at"`
	Total     decimal.Decimal `json:"total"`
	Lines     []lineResponse  `json:"lines"`
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		AccountID: o.AccountID,
		CreatedAt: o.CreatedAt,
		Total:     o.Total,
		Lines:     make([]lineResponse, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal(),
		})
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": "invalid body"})
		return
	}

	o, err := h.engine.CreateOrder(ctx, req.AccountID, req.Lines)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	o, err := h.engine.GetOrder(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if err := h.engine.CancelOrder(ctx, id); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) accountSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	s, err := h.engine.AccountSummary(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) rangeSummary(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	s, err := h.engine.RangeSummary(r.Context(), from, to)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) topOrders(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, h.log, apperror.Validationf("n %q is not a number", raw))
			return
		}
		n = parsed
	}
	orders, err := h.engine.TopOrders(r.Context(), n)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.Validationf("%s %q is not a valid id", name, raw)
	}
	return id, nil
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.Validationf("timestamp %q is not RFC3339", raw)
	}
	return t, nil
}
