// Package http 控制器的 REST 接口
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/p2efarm/internal/api/http/handlers"
	"github.com/weisyn/p2efarm/internal/api/http/middleware"
	"github.com/weisyn/p2efarm/internal/config"
	"github.com/weisyn/p2efarm/internal/core/infrastructure/metrics"
	"github.com/weisyn/p2efarm/pkg/interfaces/infrastructure/log"
)

const shutdownTimeout = 5 * time.Second

// Server HTTP 服务器
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	listen     string
	logger     log.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer 创建服务器并注册路由
func NewServer(cfg config.APIConfig, ctrl handlers.Controller, gatherer prometheus.Gatherer, m *metrics.Metrics, logger log.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.Metrics(m),
	)

	s := &Server{
		router: router,
		listen: cfg.Listen,
		logger: logger,
	}
	s.setupRoutes(ctrl, gatherer)
	return s
}

func (s *Server) setupRoutes(ctrl handlers.Controller, gatherer prometheus.Gatherer) {
	handlers.NewHealthHandler(ctrl).RegisterRoutes(s.router)

	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/api/v1")
	handlers.NewSessionHandler(ctrl).RegisterRoutes(v1)
	handlers.NewActionHandler(ctrl, s.logger).RegisterRoutes(v1)
	handlers.NewWalletHandler(ctrl).RegisterRoutes(v1)
}

// Handler 路由处理器
func (s *Server) Handler() http.Handler { return s.router }

// Start 监听地址并在后台提供服务
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.listen, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("HTTP服务器运行失败: %v", err)
		}
	}()

	s.logger.Infof("HTTP服务器已启动 addr=%s", ln.Addr())
	return nil
}

// Addr 实际监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Stop 优雅关闭，等待进行中的请求
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("正在关闭HTTP服务器")
	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(stopCtx); err != nil {
		s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		return err
	}
	s.logger.Info("HTTP服务器已关闭")
	return nil
}
