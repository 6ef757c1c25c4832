package models

// Player represents a fantasy player who takes part in tour drafts
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
