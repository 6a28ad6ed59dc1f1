package verisend

import (
	"context"
	"time"
)

// ProbeResult is the outcome of hitting an unsubscribe URL.
type ProbeResult struct {
	StatusCode int
	Latency    time.Duration
}

// Prober is the injected capability that performs the unsubscribe
// liveness probe. The verification engine never does network I/O; the
// orchestrator calls the prober and feeds its result into the engine.
// A transport failure is reported as an error and translated by the
// caller into a non-200 result, never propagated into the engine.
type Prober interface {
	Probe(ctx context.Context, url string) (ProbeResult, error)
}
