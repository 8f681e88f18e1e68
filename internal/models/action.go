package models

import "time"

// ActionStatus is the lifecycle of a journaled operator action.
type ActionStatus string

const (
	ActionStatusStarted   ActionStatus = "started"
	ActionStatusSucceeded ActionStatus = "succeeded"
	ActionStatusFailed    ActionStatus = "failed"
)

// ActionRecord is one operator action kept in the local journal.
type ActionRecord struct {
	ID            string       `json:"id" db:"id"`
	DealIDOnChain int64        `json:"dealIdOnChain" db:"deal_id_on_chain"`
	Action        string       `json:"action" db:"action"`
	Status        ActionStatus `json:"status" db:"status"`
	Error         *string      `json:"error,omitempty" db:"error"`
	TxHashes      []string     `json:"txHashes" db:"tx_hashes"`
	Wallet        string       `json:"wallet,omitempty" db:"wallet"`
	StartedAt     time.Time    `json:"startedAt" db:"started_at"`
	FinishedAt    *time.Time   `json:"finishedAt,omitempty" db:"finished_at"`
}

// Duration returns how long the action ran, or zero while it is in flight.
func (r *ActionRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ActionFilter for querying the journal
type ActionFilter struct {
	DealIDOnChain *int64        `json:"dealIdOnChain,omitempty"`
	Action        *string       `json:"action,omitempty"`
	Status        *ActionStatus `json:"status,omitempty"`
	Limit         int           `json:"limit,omitempty"`
	Offset        int           `json:"offset,omitempty"`
}
