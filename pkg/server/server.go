// Package server orchestrates the lifecycle of the transport adapters that
// expose the tool gateway, plus the background maintenance work that runs
// alongside them.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atelierhq/wardenfs/internal/logger"
	"github.com/atelierhq/wardenfs/pkg/adapter"
	"github.com/atelierhq/wardenfs/pkg/discovery"
)

// Server runs one or more transport adapters over a shared gateway and
// sweeps expired folder handles in the background.
//
// Lifecycle:
//  1. Creation: New() with the discovery service and sweep interval
//  2. Registration: AddAdapter() for each transport
//  3. Startup: Serve() starts everything and blocks
//  4. Shutdown: context cancellation stops adapters in reverse order
type Server struct {
	disc          *discovery.Service
	sweepInterval time.Duration

	mu       sync.Mutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a server. sweepInterval controls how often expired folder
// handles are reclaimed; zero disables the sweeper.
func New(disc *discovery.Service, sweepInterval time.Duration) *Server {
	return &Server{
		disc:          disc,
		sweepInterval: sweepInterval,
	}
}

// AddAdapter registers a transport adapter. Adapters must be registered
// before Serve; duplicate transports are rejected.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}
	for _, existing := range s.adapters {
		if existing.Transport() == a.Transport() {
			return fmt.Errorf("adapter for transport %s already registered", a.Transport())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter", a.Transport())
	return nil
}

// Serve starts all registered adapters and the handle sweeper, blocking
// until the context is cancelled or an adapter fails. On shutdown the
// adapters are stopped in reverse registration order.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return errors.New("Serve() has already been called on this server")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting server with %d adapter(s)", len(adapters))

	if s.sweepInterval > 0 {
		go s.sweepLoop(ctx)
	}

	type adapterError struct {
		transport string
		err       error
	}
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			if err := a.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
				logger.Error("%s adapter failed: %v", a.Transport(), err)
				errChan <- adapterError{transport: a.Transport(), err: err}
				return
			}
			logger.Debug("%s adapter stopped", a.Transport())
		}(adp)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		serveErr = ctx.Err()
	case ae := <-errChan:
		serveErr = fmt.Errorf("%s adapter error: %w", ae.transport, ae.err)
	}

	s.stopAll(adapters)
	wg.Wait()

	logger.Info("Server stopped")
	return serveErr
}

// stopAll stops adapters in reverse registration order, bounded by a
// shared timeout so one stuck adapter cannot block shutdown forever.
func (s *Server) stopAll(adapters []adapter.Adapter) {
	const stopTimeout = 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", a.Transport(), err)
		}
	}
}

// sweepLoop reclaims expired folder handles until the context ends.
// Expiry is enforced at resolve time; sweeping only frees memory.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.disc.Handles().Sweep(); removed > 0 {
				logger.Debug("Swept %d expired folder handles", removed)
			}
		}
	}
}
