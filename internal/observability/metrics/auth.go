package metrics

import (
	"time"

	obserrors "github.com/kavach-app/kavach/internal/observability/errors"
	"github.com/kavach-app/kavach/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// AuthMetric captures one explicit identity operation (login, signup, logout, reset).
type AuthMetric struct {
	Operation string
	Duration  time.Duration
	Err       error
}

// EmitAuthOperation emits standardised identity operation metrics.
func EmitAuthOperation(sink statsd.Sink, in AuthMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	if in.Err != nil {
		result = ResultError
	}
	tags := map[string]string{
		"operation": in.Operation,
		"result":    result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.operation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.operation.duration", in.Duration, CloneTags(tags))
	}
}

// DecisionMetric describes a single route authorization outcome.
type DecisionMetric struct {
	Outcome string
	Reason  string
	Role    string
}

// EmitDecision counts route authorization decisions.
func EmitDecision(sink statsd.Sink, in DecisionMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"outcome": in.Outcome}
	if in.Reason != "" {
		tags["reason"] = in.Reason
	}
	if in.Role != "" {
		tags["role"] = in.Role
	}
	sink.Count("auth.decision", 1, tags)
}

// EmitProfileLookup records how a session's profile lookup ended: found, missing, invalid or error.
func EmitProfileLookup(sink statsd.Sink, outcome string, d time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{"outcome": outcome}
	sink.Count("auth.profile_lookup", 1, tags)
	if d > 0 {
		sink.Timing("auth.profile_lookup.duration", d, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
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
