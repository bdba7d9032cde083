package observability

import (
	"context"
	"time"
)

// NoopMetrics discards every recording.
type NoopMetrics struct{}

func (NoopMetrics) RecordInvocation(context.Context, string, time.Duration, int, error) {}
