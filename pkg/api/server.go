package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/eventbook/eventbook/pkg/engine"
	"github.com/eventbook/eventbook/pkg/market"
	"github.com/eventbook/eventbook/pkg/positions"
)

// Server is the HTTP/WebSocket gateway to the matching engine.
type Server struct {
	log      *zap.SugaredLogger
	engine   *engine.Engine
	registry *market.Registry
	tracker  *positions.Tracker
	hub      *Hub

	httpServer *http.Server
}

// NewServer creates the API server. The hub's Run loop is started by Start.
func NewServer(log *zap.SugaredLogger, eng *engine.Engine, registry *market.Registry, tracker *positions.Tracker, hub *Hub) *Server {
	return &Server{
		log:      log,
		engine:   eng,
		registry: registry,
		tracker:  tracker,
		hub:      hub,
	}
}

// Hub exposes the WebSocket hub so it can be subscribed to engine events.
func (s *Server) Hub() *Hub { return s.hub }

// Start begins serving. Blocks until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ws", s.handleWebSocket)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/markets", s.handleMarkets).Methods("GET")
	v1.HandleFunc("/events/{eventID}/options/{optionID}/orderbook", s.handleOrderbook).Methods("GET")
	v1.HandleFunc("/events/{eventID}/options/{optionID}/trades", s.handleTrades).Methods("GET")
	v1.HandleFunc("/events/{eventID}/options/{optionID}/orders", s.handleUserOrders).Methods("GET")
	v1.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	v1.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	v1.HandleFunc("/orders/{orderID}", s.handleGetOrder).Methods("GET")
	v1.HandleFunc("/users/{userID}/positions", s.handlePositions).Methods("GET")

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Infow("api_server_starting", "addr", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// ==============================
// Handlers
// ==============================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"markets": s.registry.Count(),
	})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.registry.List()
	sort.Slice(markets, func(i, j int) bool {
		a, b := markets[i].Instrument, markets[j].Instrument
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.OptionID < b.OptionID
	})

	out := make([]MarketInfo, len(markets))
	for i, m := range markets {
		out[i] = toMarketInfo(m)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	in, ok := s.instrumentVars(w, r)
	if !ok {
		return
	}

	depth := 0
	if d := r.URL.Query().Get("depth"); d != "" {
		depth, _ = strconv.Atoi(d)
	}

	snap, err := s.engine.Snapshot(in, depth)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "market_not_found", err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, OrderbookResponse{
		EventID:   in.EventID,
		OptionID:  in.OptionID,
		Bids:      toPriceLevels(snap.Bids),
		Asks:      toPriceLevels(snap.Asks),
		LastPrice: cents(snap.LastPrice),
		MidPrice:  cents(snap.MidPrice),
		Spread:    cents(snap.Spread),
		Change24h: snap.Change24h.StringFixed(2),
		Timestamp: snap.Timestamp.UnixMilli(),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	in, ok := s.instrumentVars(w, r)
	if !ok {
		return
	}
	if !s.registry.Exists(in) {
		s.respondError(w, http.StatusNotFound, "market_not_found", "market "+in.String()+" not found")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	trades := s.engine.Trades(in, limit)
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = toTradeInfo(t)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	in, ok := s.instrumentVars(w, r)
	if !ok {
		return
	}
	if !s.registry.Exists(in) {
		s.respondError(w, http.StatusNotFound, "market_not_found", "market "+in.String()+" not found")
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil || userID <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "user query parameter required")
		return
	}

	orders := s.engine.UserOrders(in, userID)
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = toOrderInfo(o)
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	side, err := parseSide(req.Side)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	typ, err := parseType(req.Type)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tif, err := parseTIF(req.TimeInForce)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	price, err := parseCents(req.Price)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.engine.Submit(engine.SubmitRequest{
		UserID:      req.UserID,
		EventID:     req.EventID,
		OptionID:    req.OptionID,
		Side:        side,
		Type:        typ,
		TimeInForce: tif,
		Price:       price,
		Quantity:    req.Quantity,
	})
	if err != nil {
		s.respondSubmitError(w, err)
		return
	}

	trades := make([]TradeInfo, len(result.Trades))
	for i, t := range result.Trades {
		trades[i] = toTradeInfo(t)
	}
	s.respondJSON(w, http.StatusOK, SubmitOrderResponse{
		Order:  toOrderInfo(result.Order),
		Trades: trades,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.OrderID == "" || req.UserID <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "orderId and userId required")
		return
	}

	order, err := s.engine.Cancel(req.OrderID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNotCancellable):
			s.respondError(w, http.StatusNotFound, "not_cancellable", err.Error())
		case errors.Is(err, engine.ErrInstrumentHalted):
			s.respondError(w, http.StatusServiceUnavailable, "instrument_halted", err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, toOrderInfo(order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderID"]
	order, err := s.engine.Order(orderID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "order_not_found", err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, toOrderInfo(order))
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	if err != nil || userID <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
		return
	}

	pos := s.tracker.Positions(userID)
	sort.Slice(pos, func(i, j int) bool {
		a, b := pos[i].Instrument, pos[j].Instrument
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.OptionID < b.OptionID
	})

	out := make([]PositionInfo, len(pos))
	for i, p := range pos {
		out[i] = toPositionInfo(p)
	}
	s.respondJSON(w, http.StatusOK, out)
}

// ==============================
// Helpers
// ==============================

func (s *Server) instrumentVars(w http.ResponseWriter, r *http.Request) (market.Instrument, bool) {
	vars := mux.Vars(r)
	eventID, err1 := strconv.ParseInt(vars["eventID"], 10, 64)
	optionID, err2 := strconv.ParseInt(vars["optionID"], 10, 64)
	if err1 != nil || err2 != nil || eventID <= 0 || optionID <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "invalid event or option id")
		return market.Instrument{}, false
	}
	return market.Instrument{EventID: eventID, OptionID: optionID}, true
}

// respondSubmitError maps engine errors to HTTP statuses. A rejected order
// is an answered request, not a server failure, so most map to 4xx.
func (s *Server) respondSubmitError(w http.ResponseWriter, err error) {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, engine.ErrMarketClosed):
		s.respondError(w, http.StatusConflict, "market_closed", err.Error())
	case errors.Is(err, engine.ErrInsufficientLiquidity):
		s.respondError(w, http.StatusConflict, "insufficient_liquidity", err.Error())
	case errors.Is(err, engine.ErrInstrumentHalted):
		s.respondError(w, http.StatusServiceUnavailable, "instrument_halted", err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorw("response_encode_error", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: code, Message: message})
}
