package dto

import (
	"time"
)

// SweepPassResponse reports one sweeper pass (expirations or renewals).
// Failures are per-account and never abort the pass; failed ids are retried
// on the next run.
type SweepPassResponse struct {
	Total            int      `json:"total"`
	Success          int      `json:"success"`
	Failed           int      `json:"failed"`
	FailedAccountIDs []string `json:"failed_account_ids,omitempty"`
}

// SweepRunResponse reports a full sweeper run
type SweepRunResponse struct {
	RunID       string            `json:"run_id"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	Expirations SweepPassResponse `json:"expirations"`
	Renewals    SweepPassResponse `json:"renewals"`
}
