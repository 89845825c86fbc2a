// Package fanout pushes a reconciled catalog to N independently configured
// external AI endpoints and aggregates per-provider outcomes.
package fanout

// Classification buckets terminal push outcomes for reporting and metrics.
type Classification string

const (
	ClassSucceeded     Classification = "succeeded"
	ClassTransient     Classification = "failed_transient"
	ClassTerminal      Classification = "failed_terminal"
	ClassNotConfigured Classification = "not_configured"
)

// PushResult is one row per provider per sync run.
type PushResult struct {
	Provider       string         `json:"provider"`
	Success        bool           `json:"success"`
	AttemptsMade   int            `json:"attempts_made"`
	ItemsSent      int            `json:"items_sent"`
	Error          string         `json:"error,omitempty"`
	Classification Classification `json:"classification"`
}
