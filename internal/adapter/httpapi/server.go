package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/orders-service/internal/domain"
	"github.com/example/orders-service/internal/engine"
	"github.com/example/orders-service/internal/metrics"
	"github.com/example/orders-service/internal/usecase"
)

// Deps — use cases, которые обслуживает HTTP-слой.
type Deps struct {
	Compose    usecase.ComposeOrder
	Create     usecase.CreateOrderWithItems
	Update     usecase.UpdateOrder
	Delete     usecase.DeleteOrder
	Get        usecase.GetOrderByID
	List       usecase.ListOrders
	Items      usecase.GetOrderItems
	AllItems   usecase.ListAllItems
	GetItem    usecase.GetOrderItem
	AddItem    usecase.AddOrderItem
	UpdateItem usecase.UpdateOrderItem
	DeleteItem usecase.DeleteOrderItem
	Stats      usecase.GetStats
	Customers  func() []domain.Customer
	Products   func() []domain.Product
}

type Server struct {
	Router *mux.Router
	deps   Deps
	log    *zap.Logger
	m      *metrics.ServerMetrics
}

func NewServer(deps Deps, log *zap.Logger, m *metrics.ServerMetrics) *Server {
	s := &Server{Router: mux.NewRouter(), deps: deps, log: log, m: m}

	api := s.Router.PathPrefix("/api").Subrouter()
	if m != nil {
		api.Use(s.instrument)
	}
	api.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/with-items", s.handleCreateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/validate", s.handleValidateOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleUpdateOrder).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleDeleteOrder).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{id:[0-9]+}/items", s.handleListOrderItems).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}/items", s.handleAddItem).Methods(http.MethodPost)
	api.HandleFunc("/order-items", s.handleListAllItems).Methods(http.MethodGet)
	api.HandleFunc("/order-items/{id:[0-9]+}", s.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/order-items/{id:[0-9]+}", s.handleUpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/order-items/{id:[0-9]+}", s.handleDeleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/customers", s.handleCustomers).Methods(http.MethodGet)
	api.HandleFunc("/products", s.handleProducts).Methods(http.MethodGet)

	s.Router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	s.Router.PathPrefix("/").Handler(http.FileServer(http.Dir("web")))
	return s
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.List.Execute())
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	o, found := s.deps.Get.Execute(id)
	if !found {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// handleValidateOrder — предпросмотр черновика: валидация и расчёт итога
// без сохранения.
func (s *Server) handleValidateOrder(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	po, verrs := s.deps.Compose.Execute(draft)
	if verrs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
		return
	}
	writeJSON(w, http.StatusOK, po)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	o, err := s.deps.Create.Execute(r.Context(), draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	draft, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	o, err := s.deps.Update.Execute(r.Context(), id, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Delete.Execute(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

func (s *Server) handleListOrderItems(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	items, err := s.deps.Items.Execute(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.OrderItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleListAllItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.AllItems.Execute(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if items == nil {
		items = []domain.OrderItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	it, err := s.deps.GetItem.Execute(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	it, err := s.deps.AddItem.Execute(r.Context(), id, item)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, ok := s.decodeItem(w, r)
	if !ok {
		return
	}
	it, err := s.deps.UpdateItem.Execute(r.Context(), id, item)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deps.DeleteItem.Execute(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order item deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Stats.Execute(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Customers())
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Products())
}

// decodeDraft разбирает OrderCreatePayload. Приведение строк формы к числам —
// забота клиента: сюда должен прийти уже типизированный JSON.
func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (domain.OrderDraft, bool) {
	var draft domain.OrderDraft
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&draft); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return domain.OrderDraft{}, false
	}
	return draft, true
}

func (s *Server) decodeItem(w http.ResponseWriter, r *http.Request) (domain.LineItemDraft, bool) {
	var item domain.LineItemDraft
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return domain.LineItemDraft{}, false
	}
	return item, true
}

// writeError переводит доменные ошибки в HTTP-статусы: список нарушений
// валидации отдаётся целиком, чтобы клиент показал все проблемы разом.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verrs engine.FieldErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
	case errors.Is(err, domain.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		s.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		handler := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				handler = tpl
			}
		}
		s.m.Requests.WithLabelValues(handler, strconv.Itoa(sw.status)).Inc()
		s.m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// pathID разбирает {id} из маршрута. Маршрут пропускает только цифры,
// но переполнение int64 regexp не ловит — такой идентификатор заведомо
// не существует.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
