// Package api exposes the benefit calculator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rd-benefit/internal/benefit"
	"github.com/sells-group/rd-benefit/internal/regime"
	"github.com/sells-group/rd-benefit/internal/report"
)

const maxBodyBytes = 1 << 20

// Options tunes the HTTP surface.
type Options struct {
	RateLimit      float64 // requests per second across all clients
	RateBurst      int
	AllowedOrigins []string
}

// Server serves evaluation requests.
type Server struct {
	catalog       *regime.Catalog
	defaultRegime string
	formatter     *report.Formatter
	limiter       *rate.Limiter
	origins       []string
}

// New creates a Server.
func New(catalog *regime.Catalog, defaultRegime string, formatter *report.Formatter, opts Options) *Server {
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Server{
		catalog:       catalog,
		defaultRegime: defaultRegime,
		formatter:     formatter,
		limiter:       rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		origins:       opts.AllowedOrigins,
	}
}

// Routes returns the chi router with all middleware mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/regimes", s.handleRegimes)
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/sweep", s.handleSweep)
	})

	return r
}

type evaluateRequest struct {
	Sales             decimal.Decimal  `json:"sales"`
	OperatingExpenses decimal.Decimal  `json:"operating_expenses"`
	RDSpend           decimal.Decimal  `json:"rd_spend"`
	Regime            string           `json:"regime"`
	TaxRate           *decimal.Decimal `json:"tax_rate"`
}

type evaluateResponse struct {
	ID string `json:"id"`
	report.Report
}

type sweepRequest struct {
	evaluateRequest
	From  decimal.Decimal `json:"from"`
	To    decimal.Decimal `json:"to"`
	Steps int             `json:"steps"`
}

type sweepResponse struct {
	ID     string               `json:"id"`
	Regime regime.Regime        `json:"regime"`
	Points []benefit.SweepPoint `json:"points"`
}

func (s *Server) handleRegimes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.defaultRegime,
		"regimes": s.catalog.All(),
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, in, ok := s.resolveInputs(w, req)
	if !ok {
		return
	}

	res, err := benefit.Evaluate(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		ID:     RequestID(r.Context()),
		Report: report.Build(reg, res, s.formatter),
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, in, ok := s.resolveInputs(w, req.evaluateRequest)
	if !ok {
		return
	}

	points, err := benefit.Sweep(in, req.From, req.To, req.Steps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{
		ID:     RequestID(r.Context()),
		Regime: reg,
		Points: points,
	})
}

func (s *Server) resolveInputs(w http.ResponseWriter, req evaluateRequest) (regime.Regime, benefit.Inputs, bool) {
	rateStr := ""
	if req.TaxRate != nil {
		rateStr = req.TaxRate.String()
	}
	reg, err := s.catalog.Resolve(req.Regime, rateStr, s.defaultRegime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return regime.Regime{}, benefit.Inputs{}, false
	}

	return reg, benefit.Inputs{
		Sales:             req.Sales,
		OperatingExpenses: req.OperatingExpenses,
		RDSpend:           req.RDSpend,
		TaxRate:           reg.Rate,
	}, true
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

// RequestID returns the ID assigned to the request, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("api: request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
