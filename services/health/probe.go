package health

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/tracing"
)

// InboundProber verifies the inbound mailbox path end to end, typically
// by opening and closing a session.
type InboundProber interface {
	Probe(ctx context.Context) error
}

// OutboundProber verifies the outbound path without sending mail.
type OutboundProber interface {
	Verify(ctx context.Context) error
}

// HealthService probes both mail paths and caches the verdict for a
// freshness window so repeated checks do not hammer the remote servers.
// Check never fails; probe errors are data in the returned status.
type HealthService struct {
	log      logger.Logger
	inbound  InboundProber
	outbound OutboundProber
	window   time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cached *interfaces.HealthStatus
}

func NewHealthService(log logger.Logger, inbound InboundProber, outbound OutboundProber, window time.Duration) *HealthService {
	if window <= 0 {
		window = time.Minute
	}
	return &HealthService{
		log:      log,
		inbound:  inbound,
		outbound: outbound,
		window:   window,
		now:      time.Now,
	}
}

func (s *HealthService) Check(ctx context.Context) interfaces.HealthStatus {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HealthService.Check")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	now := s.now()

	s.mu.Lock()
	if s.cached != nil && now.Sub(s.cached.CheckedAt) < s.window {
		status := *s.cached
		status.Cached = true
		status.AgeSeconds = int(now.Sub(status.CheckedAt).Seconds())
		s.mu.Unlock()
		span.SetTag("cached", true)
		return status
	}
	s.mu.Unlock()

	status := s.probe(ctx, now)

	s.mu.Lock()
	s.cached = &status
	s.mu.Unlock()

	span.SetTag("inbound.ok", status.Inbound.OK)
	span.SetTag("outbound.ok", status.Outbound.OK)

	return status
}

// Refresh forces a probe regardless of cache age. Run by the scheduler
// so interactive checks usually hit a warm cache.
func (s *HealthService) Refresh(ctx context.Context) interfaces.HealthStatus {
	status := s.probe(ctx, s.now())

	s.mu.Lock()
	s.cached = &status
	s.mu.Unlock()

	return status
}

func (s *HealthService) probe(ctx context.Context, checkedAt time.Time) interfaces.HealthStatus {
	status := interfaces.HealthStatus{
		CheckedAt: checkedAt,
		Inbound:   interfaces.ProbeResult{OK: true},
		Outbound:  interfaces.ProbeResult{OK: true},
	}

	if err := s.inbound.Probe(ctx); err != nil {
		status.Inbound = interfaces.ProbeResult{OK: false, Detail: err.Error()}
		s.log.Warnf("Inbound health probe failed: %v", err)
	}

	if err := s.outbound.Verify(ctx); err != nil {
		status.Outbound = interfaces.ProbeResult{OK: false, Detail: err.Error()}
		s.log.Warnf("Outbound health probe failed: %v", err)
	}

	return status
}
