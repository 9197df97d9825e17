// Package http 提供带限流与熔断中间件的 HTTP 服务器和客户端。
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/pkg/circuitbreaker"
	"Koro/backend/go/pkg/httpmiddleware"
	"Koro/backend/go/pkg/logger"
	"Koro/backend/go/pkg/ratelimiter"
)

// Middleware 包装一个 http.Handler。
type Middleware func(http.Handler) http.Handler

// Server 包装标准库的 http.Server，并按配置挂载中间件。
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *logger.Logger
}

// ServerOption 配置 Server。
type ServerOption func(*Server)

// WithAddress 设置监听地址。
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithLogger 设置服务器日志。
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer 根据配置创建服务器，启用时自动挂载按客户端限流与熔断中间件。
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	mux := http.NewServeMux()
	var handler http.Handler = mux

	srv := &Server{
		httpServer: &http.Server{ReadHeaderTimeout: 10 * time.Second},
		mux:        mux,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	var middlewares []Middleware

	if cfg.Middleware.RateLimiter.Enabled {
		limiter, err := createRateLimiter(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.logger.WithField("algorithm", cfg.Middleware.RateLimiter.Algorithm).Info("Enabling per-client rate limiter middleware")
		middlewares = append(middlewares, httpmiddleware.RateLimit(limiter, httpmiddleware.ClientIP))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := createCircuitBreaker(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.logger.Info("Enabling circuit breaker middleware")
		middlewares = append(middlewares, httpmiddleware.CircuitBreak(breaker))
	}

	// 逆序包装，使第一个中间件最先执行
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	srv.httpServer.Handler = handler

	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = cfg.Server.Address
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}
	return srv, nil
}

// Handle 注册处理器。
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// HandleFunc 注册处理函数。
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// Handler 返回挂载了中间件的根处理器。
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe 启动服务器，正常关闭时返回 nil。
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting server on " + s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器。
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// createRateLimiter 按配置为每个客户端创建独立的限流器。
func createRateLimiter(cfg config.RateLimiterConfig) (*ratelimiter.Keyed, error) {
	var factory func() ratelimiter.RateLimiter
	switch cfg.Algorithm {
	case "", "tokenBucket":
		conf := cfg.TokenBucket
		factory = func() ratelimiter.RateLimiter { return ratelimiter.NewTokenBucket(conf.Rate, conf.Capacity) }
	case "leakyBucket":
		conf := cfg.LeakyBucket
		factory = func() ratelimiter.RateLimiter { return ratelimiter.NewLeakyBucket(conf.Rate, conf.Capacity) }
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
	return ratelimiter.NewKeyed(factory, cfg.MaxClients, 10*time.Minute)
}

// createCircuitBreaker 按配置创建熔断器。
func createCircuitBreaker(cfg config.CircuitBreakerConfig) (circuitbreaker.CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout), nil
}
