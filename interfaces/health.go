package interfaces

import (
	"context"
	"time"
)

type ProbeResult struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// HealthStatus is always returned as data; probe failures are encoded in
// the Inbound/Outbound fields, never raised to the caller.
type HealthStatus struct {
	CheckedAt  time.Time   `json:"checkedAt"`
	AgeSeconds int         `json:"ageSeconds"`
	Cached     bool        `json:"cached"`
	Inbound    ProbeResult `json:"inbound"`
	Outbound   ProbeResult `json:"outbound"`
}

type HealthService interface {
	Check(ctx context.Context) HealthStatus
}
