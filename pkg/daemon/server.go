package daemon

import (
	"context"
	"net"
	"os"
	"path/filepath"

	"google.golang.org/grpc"

	reclaimv1 "github.com/jamesainslie/reclaim/pkg/api/reclaim/v1"
)

// Config holds daemon configuration.
type Config struct {
	SocketPath string
	DataDir    string
}

// Server is the reclaimd gRPC server.
type Server struct {
	cfg      Config
	grpc     *grpc.Server
	listener net.Listener
}

// NewServer listens on the configured unix socket and registers svc.
func NewServer(cfg Config, svc reclaimv1.ReclaimDaemonServer) (*Server, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	// The socket grants full control over quarantined data.
	if err := os.Chmod(cfg.SocketPath, 0o600); err != nil {
		_ = listener.Close()
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		grpc:     grpc.NewServer(),
		listener: listener,
	}
	reclaimv1.RegisterReclaimDaemonServer(srv.grpc, svc)

	return srv, nil
}

// Serve starts the gRPC server. Blocks until stopped.
func (s *Server) Serve() error {
	return s.grpc.Serve(s.listener)
}

// Close stops the server and cleans up.
func (s *Server) Close() error {
	s.grpc.GracefulStop()
	return os.RemoveAll(s.cfg.SocketPath)
}
