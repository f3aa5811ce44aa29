package interfaces

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
)

// OrderHandler 封装了 order 服务的 HTTP 处理器
type OrderHandler struct {
	service *application.OrderApplicationService
	tracer  trace.Tracer
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service *application.OrderApplicationService, tracer trace.Tracer) *OrderHandler {
	return &OrderHandler{service: service, tracer: tracer}
}

// RegisterRoutes 在 router 上注册所有路由。
// 固定路径必须先于 /{orderId} 注册，否则会被当作订单ID匹配。
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1/orders").Subrouter()
	api.Use(h.traceMiddleware)
	api.HandleFunc("", h.createOrder).Methods(http.MethodPost)
	api.HandleFunc("/cache/status", h.cacheStatus).Methods(http.MethodGet)
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/{orderId}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/{orderId}/status", h.getOrderStatus).Methods(http.MethodGet)
	api.HandleFunc("/{orderId}/status", h.updateOrderStatus).Methods(http.MethodPut)
}

// traceMiddleware 从请求头中恢复上游链路，并为每个请求开启一个 server span。
func (h *OrderHandler) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		name := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				name = tpl
			}
		}
		ctx, span := h.tracer.Start(ctx, r.Method+" "+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.method", r.Method), attribute.String("http.route", name)),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(http.StatusBadRequest, "invalid-json", "Invalid JSON format: "+err.Error(), nil))
		return
	}
	logger.Ctx(ctx).Info().
		Str("customer", req.CustomerName).
		Str("request_id", req.RequestID).
		Int("items", len(req.Items)).
		Msg("creating order")

	order, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetOrderStatus(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *OrderHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.UpdateOrderStatus(r.Context(), mux.Vars(r)["orderId"], r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) cacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CacheStatus())
}

func (h *OrderHandler) health(w http.ResponseWriter, r *http.Request) {
	st := h.service.CacheStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "UP",
		"timestamp":    time.Now().UTC(),
		"service":      constants.OrderServiceName,
		"redis":        st.RedisAvailable,
		"fallbackMode": st.FallbackMode,
	})
}

// writeError 把错误分类映射为 HTTP 状态码。
func (h *OrderHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.Ctx(r.Context())
	switch {
	case errors.Is(err, errs.ErrValidation):
		log.Warn().Err(err).Msg("request rejected")
		writeJSON(w, http.StatusBadRequest, errorBody(http.StatusBadRequest, "validation-error", err.Error(), errs.FieldErrors(err)))
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(http.StatusNotFound, "not-found", err.Error(), nil))
	case errors.Is(err, domain.ErrOrderTerminal):
		writeJSON(w, http.StatusConflict, errorBody(http.StatusConflict, "invalid-state", err.Error(), nil))
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(http.StatusInternalServerError, "internal-error", "An internal error occurred: "+err.Error(), nil))
	}
}

func errorBody(status int, code, message string, fields map[string]string) map[string]any {
	body := map[string]any{
		"error":     code,
		"message":   message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	}
	if len(fields) > 0 {
		body["fieldErrors"] = fields
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
