// Package metrics provides standardised metric emission helpers.
package metrics

import (
	"time"

	obserrors "github.com/applyflow/applyflow-api/internal/observability/errors"
	"github.com/applyflow/applyflow-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// ApplicationMetric captures details about an application lifecycle event for metric emission.
type ApplicationMetric struct {
	Transition string // submitted, completed, failed, cancelled, reaped
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitApplicationLifecycle emits standardised application lifecycle metrics.
func EmitApplicationLifecycle(sink statsd.Sink, in ApplicationMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("application.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("application.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
