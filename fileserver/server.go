// Package fileserver serves a directory over the line protocol, one
// goroutine per connection.
package fileserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"binxfer/config"
	"binxfer/discovery"
	"binxfer/index"
	"binxfer/logging"
	"binxfer/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server accepts clients and hands each one a session.
type Server struct {
	index     *index.Index
	registry  *Registry
	logger    *zap.Logger
	chunkSize int

	wg sync.WaitGroup
}

// New creates a server sharing the directory behind ix.
func New(ix *index.Index, chunkSize int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		index:     ix,
		registry:  NewRegistry(),
		logger:    logger,
		chunkSize: chunkSize,
	}
}

// Registry returns the live connection registry.
func (server *Server) Registry() *Registry {
	return server.registry
}

// Serve accepts connections on ln until ctx is cancelled. Cancelling closes
// the listener and every open connection, then waits for their sessions.
func (server *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close()
		server.registry.CloseAll()
	})
	defer stop()

	server.logger.Info("server listening", zap.String("addr", ln.Addr().String()), zap.String("root", server.index.Root()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				server.wg.Wait()
				return nil
			}
			server.logger.Warn("error accepting connection", zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}

		server.wg.Add(1)
		go server.handleClient(ctx, conn)
	}
}

// handleClient processes a single client connection
func (server *Server) handleClient(ctx context.Context, conn net.Conn) {
	defer server.wg.Done()

	peer := server.registry.Add(conn)
	metrics.ConnectionOpened()
	logger := server.logger.With(logging.Peer(peer.Addr), logging.Session(peer.ID))
	logger.Info("client connected", zap.Int("clients", server.registry.Len()))

	// The registry may have been swept before this peer was added.
	if ctx.Err() != nil {
		conn.Close()
	}

	sess := newSession(server, conn, logger)
	defer func() {
		sess.release()
		sess.Close()
		remaining := server.registry.Remove(peer.ID)
		metrics.ConnectionClosed()
		logger.Info("connection lost", zap.Int("clients", remaining))
	}()

	sess.serve()
}

// Run listens on the configured port and serves until ctx is cancelled,
// together with the optional metrics endpoint, mDNS advertisement and
// directory watcher.
func Run(ctx context.Context, cfg *config.ServerConfig, server *Server) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Port, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Serve(ctx, ln)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsAddr, server.logger)
		})
	}

	if cfg.Advertise {
		g.Go(func() error {
			return discovery.Advertise(ctx, config.ServiceType, cfg.Port, server.logger)
		})
	}

	if cfg.Watch {
		if err := server.index.Watch(ctx); err != nil {
			server.logger.Warn("directory watch disabled", zap.Error(err))
		}
	}

	return g.Wait()
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
