package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/auth"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/telemetry"
)

const (
	maxBodySize      = 1 << 20
	requestTimeout   = 5 * time.Second
	defaultRateLimit = 100
)

type Server struct {
	svc       *service.Service
	auth      *auth.Authenticator
	logger    zerolog.Logger
	rateLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRateLimit sets the number of requests per minute allowed per client IP.
// Zero or less disables rate limiting.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimit = perMinute }
}

func NewServer(svc *service.Service, adminKey string, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		auth:      auth.NewAuthenticator(adminKey),
		logger:    zerolog.Nop(),
		rateLimit: defaultRateLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware)
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(s.rateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				RateLimitedError(w, r, "Too many requests")
			}),
		))
	}
	r.Use(middleware.Timeout(requestTimeout))

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.With(s.authAdmin).Post("/", s.handleCreateRule)
		r.Post("/parse", s.handleParseRule)
		r.With(s.authAdmin).Post("/combine", s.handleCombineRules)
		r.Post("/evaluate", s.handleEvaluateMany)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRule)
			r.With(s.authAdmin).Put("/", s.handleModifyRule)
			r.With(s.authAdmin).Delete("/", s.handleDeleteRule)
			r.Post("/evaluate", s.handleEvaluateRule)
			r.Post("/explain", s.handleExplainRule)
			r.Get("/jsonlogic", s.handleJSONLogic)
		})
	})

	// compatibility routes
	r.With(s.authAdmin).Post("/create_rule", s.handleCompatCreate)
	r.With(s.authAdmin).Post("/combine_rules", s.handleCompatCombine)
	r.Post("/evaluate_rule", s.handleCompatEvaluate)
	r.With(s.authAdmin).Post("/modify_rule", s.handleCompatModify)

	return r
}

// ---- middleware & helpers ----

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := s.auth.Authenticate(r.Header.Get("Authorization"))
		if !res.Authenticated {
			if res.Status == http.StatusUnauthorized {
				UnauthorizedError(w, r, res.Error)
			} else {
				ForbiddenError(w, r, res.Error)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeJSON reads a size-limited JSON body into dst. Numbers are kept as
// json.Number so large integers survive intact.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			RequestTooLargeError(w, r, "Request body exceeds limit")
		case errors.Is(err, io.EOF):
			BadRequestError(w, r, ErrCodeInvalidJSON, "Request body is empty")
		default:
			BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON")
		}
		return false
	}
	return true
}

func ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		ValidationError(w, r, "Validation failed", map[string]string{"id": "Rule id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
