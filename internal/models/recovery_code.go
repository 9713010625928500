package models

import "time"

// RecoveryCode is a single-use MFA bypass token. A fixed-size batch is
// issued whenever MFA is set up, and the whole batch is invalidated and
// regenerated on disable or explicit rotation.
type RecoveryCode struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Code      string     `json:"code"`
	Used      bool       `json:"used"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}
