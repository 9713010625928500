package models

import "time"

// SavedPassword is one vault entry. Password is stored AES-GCM
// encrypted at rest; the model carries plaintext only between the
// service layer and the repository boundary.
type SavedPassword struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Website   string    `json:"website"`
	URL       *string   `json:"url,omitempty"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
