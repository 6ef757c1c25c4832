package models

// Caption is a single draftable item: one drum corps in one judged caption.
// Corps and Caption are the two category labels; ID is the identity.
type Caption struct {
	ID      string `json:"id"`
	Corps   string `json:"corps"`
	Caption string `json:"caption"`
}
