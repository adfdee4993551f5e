package assetcache

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/unklstewy/loc-v2/internal/metrics"
)

// hopHeaders are not relayed by /fetch.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// ServerOptions configure the HTTP surface of the cache.
type ServerOptions struct {
	Precache       []string
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

// Server exposes a Cache over HTTP.
type Server struct {
	router *chi.Mux
	cache  *Cache
	opts   ServerOptions
	log    *zap.SugaredLogger
}

// NewServer builds the router.
func NewServer(cache *Cache, opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		router: chi.NewRouter(),
		cache:  cache,
		opts:   opts,
		log:    opts.Logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Cache"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/cache", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/install", s.handleInstall)
		r.Post("/activate", s.handleActivate)
	})

	r.HandleFunc("/fetch", s.handleFetch)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Ping(r.Context()); err != nil {
		s.log.Warnw("store unhealthy", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "version": s.cache.Version(), "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.cache.Version()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.cache.Status(r.Context())
	if err != nil {
		s.log.Errorw("status failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleInstall(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.cache.Install(r.Context(), s.opts.Precache))
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	removed, err := s.cache.Activate(r.Context())
	if err != nil {
		s.log.Errorw("activate failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error(), "removed": removed})
		return
	}
	if removed == nil {
		removed = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"version": s.cache.Version(), "removed": removed})
}

// handleFetch relays any method to the absolute URL in ?url= through the cache.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	target, err := url.Parse(r.URL.Query().Get("url"))
	if err != nil || !target.IsAbs() || (target.Scheme != "http" && target.Scheme != "https") {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "url must be an absolute http(s) URL"})
		return
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	out.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	out.ContentLength = r.ContentLength

	resp, err := s.cache.RoundTrip(out)
	if err != nil {
		s.log.Warnw("fetch failed", "url", target.String(), "method", r.Method, "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		w.Header().Del(h)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// requestLogger logs each request through zap.
func requestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Infow("request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
