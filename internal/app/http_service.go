package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/courtline/internal/logger"
)

// HTTPService 对外 API 服务
type HTTPService struct {
	server *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{server: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          logger.StdLogger(),
	}}
}

func (s *HTTPService) Name() string { return "http" }

// Addr 实际监听地址，Start 之前为 nil
func (s *HTTPService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start 监听并阻塞处理请求，Stop 触发的关闭不视为错误
func (s *HTTPService) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	logger.Infow("http_listening", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止接收新连接并等待进行中的请求完成
func (s *HTTPService) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
