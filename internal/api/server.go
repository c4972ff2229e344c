// Package api exposes the payment core over HTTP: the create, query, and
// privileged reconciliation entry points.
//
// Callers are identified by the X-Paybot-Identity header, set by the
// authenticating gateway in front of this service; transport
// authentication itself is outside the core.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"paybot/internal/domain"
	"paybot/internal/intent"
	"paybot/internal/metrics"

	"github.com/go-chi/chi/v5"
)

const identityHeader = "X-Paybot-Identity"

// Server wires the coordinator and reconciler to HTTP routes.
type Server struct {
	coord            *intent.Coordinator
	rec              *intent.Reconciler
	foldUnauthorized bool
	logger           *slog.Logger
	httpSrv          *http.Server
}

// Config configures the HTTP server.
type Config struct {
	Host             string
	Port             int
	Coordinator      *intent.Coordinator
	Reconciler       *intent.Reconciler
	FoldUnauthorized bool
	Logger           *slog.Logger
}

func New(cfg Config) *Server {
	s := &Server{
		coord:            cfg.Coordinator,
		rec:              cfg.Reconciler,
		foldUnauthorized: cfg.FoldUnauthorized,
		logger:           cfg.Logger,
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers without a listener.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.observe)

	r.Get("/health", s.health)
	r.Get("/metrics", metrics.Collector.Handler())

	r.Post("/api/payments", s.createIntent)
	r.Get("/api/payments", s.listIntents)
	r.Get("/api/payments/{id}", s.getIntent)
	r.Post("/api/payments/{id}/confirm", s.confirmIntent)
	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// observe records request latency.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.RequestLatency.Observe(time.Since(start).Seconds())
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createIntent(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(identityHeader)
	if caller == "" {
		writeError(w, http.StatusUnauthorized, domain.KindUnauthorized, "missing caller identity")
		return
	}

	var req intent.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "malformed request body")
		return
	}
	defer r.Body.Close()
	// The sender is always the authenticated caller, never a body field.
	req.SenderIdentity = caller

	created, err := s.coord.CreateIntent(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getIntent(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(identityHeader)
	id := chi.URLParam(r, "id")

	found, err := s.coord.GetIntentFor(r.Context(), caller, id)
	if err != nil {
		s.writeDomainError(w, err, s.foldUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) listIntents(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(identityHeader)

	intents, err := s.coord.ListIntentsFor(r.Context(), caller)
	if err != nil {
		s.writeDomainError(w, err, false)
		return
	}
	if intents == nil {
		intents = []domain.PaymentIntent{}
	}
	writeJSON(w, http.StatusOK, intents)
}

type confirmRequest struct {
	SettlementReference string `json:"settlement_reference"`
}

type confirmResponse struct {
	Intent   *domain.PaymentIntent `json:"intent"`
	Replayed bool                  `json:"replayed"`
	Notified bool                  `json:"notified"`
}

func (s *Server) confirmIntent(w http.ResponseWriter, r *http.Request) {
	caller := r.Header.Get(identityHeader)
	id := chi.URLParam(r, "id")

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "malformed request body")
		return
	}
	defer r.Body.Close()
	if req.SettlementReference == "" {
		writeError(w, http.StatusBadRequest, domain.KindValidation, "settlement_reference is required")
		return
	}

	outcome, err := s.rec.Confirm(r.Context(), caller, id, req.SettlementReference)
	if err != nil {
		s.writeDomainError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{
		Intent:   outcome.Intent,
		Replayed: outcome.Replayed,
		Notified: !outcome.Replayed && outcome.DeliveryErr == nil,
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. With fold
// set, unauthorized reads render exactly like not-found, so intent ids
// cannot be probed.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fold bool) {
	kind := domain.KindOf(err)
	if fold && kind == domain.KindUnauthorized {
		writeError(w, http.StatusNotFound, domain.KindNotFound, domain.ErrIntentNotFound.Msg)
		return
	}

	var status int
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindLinkage:
		status = http.StatusUnprocessableEntity
	case domain.KindResolution:
		status = http.StatusBadGateway
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindUnauthorized:
		status = http.StatusForbidden
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindStorage:
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("unclassified error on api surface", "err", err)
		writeError(w, http.StatusInternalServerError, "", "internal error")
		return
	}

	msg := err.Error()
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		msg = domainErr.Msg
	}
	writeError(w, status, kind, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind domain.Kind, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "kind": string(kind)})
}
