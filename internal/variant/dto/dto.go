package dto

import "time"

// VariantsReconciledEvent is published after a reconciliation commits.
type VariantsReconciledEvent struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id"`
	Created   []string  `json:"created"`
	Updated   []string  `json:"updated"`
	Disabled  []string  `json:"disabled"`
	Deleted   []string  `json:"deleted"`
	Retained  []string  `json:"retained,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
