package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"CineBot/core/session"
	"CineBot/logger"
	"CineBot/metrics"
	"CineBot/repository"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 状态服务：健康检查、指标和会话查询
type Server struct {
	store   *session.Store
	history repository.DownloadRepository
	http    *http.Server
}

// New 创建状态服务，history 可以为 nil
func New(addr string, store *session.Store, history repository.DownloadRepository) *Server {
	s := &Server{store: store, history: history}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Router 使用 gorilla/mux 注册路由
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	router.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/sessions/{userID}", s.SessionHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.StatsHandler).Methods(http.MethodGet)
	return router
}

// Run 监听直到 ctx 结束后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("状态服务启动", logger.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
