package models

import "time"

// Tour is the record backing a draft room. A tour owns exactly one draft.
type Tour struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	OwnerID       string    `json:"owner"`
	DraftActive   bool      `json:"draftActive"`
	DraftComplete bool      `json:"draftComplete"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsOwnedBy reports whether playerID owns the tour.
func (t *Tour) IsOwnedBy(playerID string) bool {
	return t != nil && t.OwnerID != "" && t.OwnerID == playerID
}
