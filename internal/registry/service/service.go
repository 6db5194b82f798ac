// Package service composes the registry: identifier allocation, the record
// store, the controller authorization guard, the key read path, and the
// notification stream.
package service

import (
	"log/slog"

	"didregistry/internal/registry/alloc"
	"didregistry/internal/registry/keys"
	registrymetrics "didregistry/internal/registry/metrics"
	"didregistry/internal/registry/notify"
	"didregistry/internal/registry/store"
)

// Service is the public facade over the registry components. All state is
// explicit owned state threaded through the constructor; the caller identity
// arrives as a parameter on every operation, never from ambient state.
type Service struct {
	records   store.RecordStore
	allocator *alloc.Allocator
	keys      *keys.Manager
	stream    *notify.Stream
	logger    *slog.Logger
	metrics   *registrymetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithStream(stream *notify.Stream) Option {
	return func(s *Service) {
		s.stream = stream
	}
}

// New constructs a Service. The stream defaults to a fresh one so callers
// that don't care about events need no wiring; the logger defaults to
// discard.
func New(records store.RecordStore, allocator *alloc.Allocator, opts ...Option) *Service {
	s := &Service{
		records:   records,
		allocator: allocator,
		keys:      keys.NewManager(records),
		stream:    notify.NewStream(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream exposes the notification stream for subscriber wiring.
func (s *Service) Stream() *notify.Stream {
	return s.stream
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.DIDsCreated.Inc()
	}
}

func (s *Service) incrementDeleted() {
	if s.metrics != nil {
		s.metrics.DIDsDeleted.Inc()
	}
}

func (s *Service) incrementControllerChanges() {
	if s.metrics != nil {
		s.metrics.ControllerChanges.Inc()
	}
}

func (s *Service) incrementKeysAdded() {
	if s.metrics != nil {
		s.metrics.KeysAdded.Inc()
	}
}

func (s *Service) incrementAuthFailures() {
	if s.metrics != nil {
		s.metrics.AuthFailures.Inc()
	}
}
