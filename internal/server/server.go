package server

import (
	"context"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/odinfs/filestored/store"
)

// Server wires the store, the task queue and the connection-handling layer
// together. It owns the socket listener, the worker pool, the log sink file
// and the metrics listener, and knows how to bring all of them down
// cleanly on either a soft (drain) or hard (immediate) stop.
type Server struct {
	cfg    *Config
	store  *store.Store
	logger zerolog.Logger
	sink   zerolog.Logger

	sinkFile *os.File
	listener net.Listener
	tasks    chan *task

	clientSeq int64

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	connWG sync.WaitGroup

	draining     atomic.Bool
	hardCtx      context.Context
	cancelHard   context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer builds a Server from a validated Config. It opens the listener
// and the log sink but does not start accepting connections; call Run for
// that.
func NewServer(cfg *Config, logger zerolog.Logger) (*Server, error) {
	sink, sinkFile, err := NewLogSink(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		sinkFile.Close()
		return nil, err
	}
	ln, err := net.Listen("unix", cfg.SocketPath)
	if err != nil {
		sinkFile.Close()
		return nil, err
	}

	hardCtx, cancel := context.WithCancel(context.Background())

	st := store.New(store.Config{
		MaxFiles: cfg.MaxFilesNo,
		MaxBytes: cfg.StorageSize,
		Policy:   cfg.Policy,
	})

	return &Server{
		cfg:        cfg,
		store:      st,
		logger:     logger,
		sink:       sink,
		sinkFile:   sinkFile,
		listener:   ln,
		tasks:      newTaskQueue(cfg.WorkersNo * 64),
		conns:      make(map[net.Conn]struct{}),
		hardCtx:    hardCtx,
		cancelHard: cancel,
	}, nil
}

func (s *Server) trackConn(c net.Conn) {
	s.connMu.Lock()
	s.conns[c] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) forgetConn(c net.Conn) {
	s.connMu.Lock()
	delete(s.conns, c)
	s.connMu.Unlock()
}

func (s *Server) closeAllConns() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// triggerHardStop escalates a fatal store error into an immediate shutdown,
// matching exit_on_fatal_errors in the original design: a fatal error is
// never something a single request can absorb.
func (s *Server) triggerHardStop(err error) {
	s.logger.Error().Err(err).Msg("fatal error, triggering hard stop")
	s.cancelHard()
	s.Shutdown(true)
}

// Run starts the accept loop, the worker pool, the metrics listener and a
// periodic store-stats reporter, and blocks until ctx is cancelled or a
// hard stop is triggered internally.
func (s *Server) Run(ctx context.Context, metricsAddr string) error {
	g, gctx := errgroup.WithContext(s.hardCtx)

	if metricsAddr != "" {
		srv, err := StartMetricsServer(metricsAddr)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			StopMetricsServer(shutdownCtx, srv)
		}()
	}

	g.Go(s.acceptLoop)
	for i := 0; i < s.cfg.WorkersNo; i++ {
		g.Go(func() error { return s.runWorker(gctx) })
	}
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st := s.store.Stats()
				RecordStoreStats(st.FileCount, st.TotalBytes)
			}
		}
	})

	go func() {
		<-ctx.Done()
		s.Shutdown(false)
	}()

	return g.Wait()
}

// Shutdown stops the server. A soft stop (hard=false) stops accepting new
// connections and lets in-flight ones finish on their own; a hard stop
// additionally cancels every worker and forcibly closes every open
// connection.
func (s *Server) Shutdown(hard bool) error {
	var result error
	s.shutdownOnce.Do(func() {
		s.draining.Store(true)
		if err := s.listener.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if hard {
			s.cancelHard()
			s.closeAllConns()
		}
	})

	if !hard {
		s.connWG.Wait()
		s.cancelHard()
	}
	// The task channel is deliberately never closed: a connection goroutine
	// racing this shutdown could still be mid-send on it, and a send on a
	// closed channel panics. Cancelling hardCtx is enough to stop every
	// worker, since runWorker always selects on ctx.Done() alongside the
	// channel receive.

	if err := s.sinkFile.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
