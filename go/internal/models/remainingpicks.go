package models

// RemainingPicks is written once per concluded draft with every caption that
// was never selected.
type RemainingPicks struct {
	ID            string    `json:"id"`
	TourID        string    `json:"tourId"`
	LeftOverPicks []Caption `json:"leftOverPicks"`
}
