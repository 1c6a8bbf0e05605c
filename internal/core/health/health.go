// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Check reports whether one dependency is ready.
type Check func(ctx context.Context) error

// ReadinessReporter is implemented by background consumers that know when
// they own work.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

type notReadyError struct{}

func (notReadyError) Error() string { return "not ready" }

// FromReporter turns a ReadinessReporter into a Check.
func FromReporter(rr ReadinessReporter) Check {
	return func(context.Context) error {
		if ok, _ := rr.Readiness(); !ok {
			return notReadyError{}
		}
		return nil
	}
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readyResponse struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Readiness runs every check with timeout and answers 503 if any fails.
func Readiness(timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for n := range checks {
		names = append(names, n)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out := readyResponse{Status: "ready", Checks: make(map[string]checkResult, len(names))}
		for _, n := range names {
			if err := checks[n](ctx); err != nil {
				out.Status = "not_ready"
				out.Checks[n] = checkResult{Status: "fail", Error: err.Error()}
				continue
			}
			out.Checks[n] = checkResult{Status: "ok"}
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
