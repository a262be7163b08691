package models

import "time"

// TrackingStatus is what is known about a delivered report's opens and
// read confirmation.
type TrackingStatus struct {
	ID           string     `json:"id"`
	Opens        int64      `json:"opens"`
	LastOpenedAt *time.Time `json:"last_opened_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

// Confirmed reports whether a read confirmation was recorded.
func (s TrackingStatus) Confirmed() bool {
	return s.ConfirmedAt != nil
}
