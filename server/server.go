// Package server Playground HTTP 服务：会话编辑、签名、Issuer 验证、合约方法与 KYC 组件设置。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/purefi/playground-sdk-go/client"
	"github.com/purefi/playground-sdk-go/services"
)

// Server Playground HTTP 服务
type Server struct {
	svc      *services.Services
	store    *SessionStore
	hub      *hub
	stats    *Stats
	logger   client.Logger
	upgrader websocket.Upgrader
	router   chi.Router
}

// New 创建服务
func New(svc *services.Services, logger client.Logger) *Server {
	if logger == nil {
		logger = client.NopLogger()
	}
	s := &Server{
		svc:    svc,
		store:  NewSessionStore(svc.Presets, svc.App().Server.SessionLimit),
		hub:    newHub(logger),
		stats:  NewStats(),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 预览推送只读，不校验来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// Handler 返回路由（测试直接挂到 httptest.Server）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stats 运行统计
func (s *Server) Stats() *Stats {
	return s.stats
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/kyc/widget.css", s.handleWidgetCSS)
	r.Post("/sign", s.handleDemoSign)

	r.Route("/api", func(api chi.Router) {
		api.Get("/chains", s.handleChains)
		api.Get("/package-types", s.handlePackageTypes)
		api.Get("/presets", s.handlePresets)
		api.Get("/stats", s.handleStats)

		api.Post("/sessions", s.handleCreateSession)
		api.Route("/sessions/{id}", func(sr chi.Router) {
			sr.Get("/", s.handleGetSession)
			sr.Delete("/", s.handleDeleteSession)
			sr.Post("/events", s.handleSessionEvents)
			sr.Post("/sign", s.handleSessionSign)
			sr.Post("/verify", s.handleSessionVerify)
			sr.Get("/ws", s.handleSessionWS)
		})

		api.Post("/contract/methods", s.handleContractMethods)
		api.Post("/contract/write", s.handleContractWrite)

		api.Get("/kyc/settings", s.handleGetWidgetSettings)
		api.Put("/kyc/settings", s.handlePutWidgetSettings)
	})
	return r
}

// requestLogger 使用 client.Logger 记录请求
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

// Start 监听 addr，ctx 取消后优雅关闭
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Playground server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down playground server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.hub.closeAll()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	return err
}
