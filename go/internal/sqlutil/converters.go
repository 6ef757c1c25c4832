package sqlutil

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Helper functions for converting between Go types and pgtype values

// ToText converts a Go string pointer to pgtype.Text
func ToText(val *string) pgtype.Text {
	if val == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *val, Valid: true}
}

// FromText converts pgtype.Text to Go string with default
func FromText(val pgtype.Text, defaultVal string) string {
	if !val.Valid {
		return defaultVal
	}
	return val.String
}

// FromBool converts pgtype.Bool to Go bool, NULL reads as false
func FromBool(val pgtype.Bool) bool {
	return val.Valid && val.Bool
}

// FromTimestamptz converts pgtype.Timestamptz to Go time, NULL reads as the zero time
func FromTimestamptz(val pgtype.Timestamptz) time.Time {
	if !val.Valid {
		return time.Time{}
	}
	return val.Time
}
