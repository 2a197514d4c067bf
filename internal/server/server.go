package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/handlers"
	"github.com/goldenrabbit-press/orders-service/internal/metrics"
	"github.com/goldenrabbit-press/orders-service/internal/middleware"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	handlers *handlers.Handlers
	httpSrv  *http.Server
}

func NewServer(cfg *config.Config, h *handlers.Handlers) *Server {
	router := gin.Default()
	router.Use(middleware.RequestID())

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
	}

	s.setupRoutes()

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/orders", s.handlers.CreateOrder)
		v1.GET("/orders/:orderNumber", s.handlers.GetOrder)
		v1.POST("/payments/confirm", s.handlers.ConfirmPayment)
		v1.GET("/payments/:paymentKey", s.handlers.GetPayment)
		v1.POST("/payments/:paymentKey/cancel", s.handlers.CancelPayment)
	}
}

// Router exposes the configured engine, mainly for handler tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
