package sqlutil

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestTextConversions(t *testing.T) {
	assert.False(t, ToText(nil).Valid)

	name := "Blue Devils"
	text := ToText(&name)
	assert.True(t, text.Valid)
	assert.Equal(t, name, FromText(text, "unknown"))
	assert.Equal(t, "unknown", FromText(pgtype.Text{}, "unknown"))
}

func TestBoolAndTimeConversions(t *testing.T) {
	assert.False(t, FromBool(pgtype.Bool{}))
	assert.False(t, FromBool(pgtype.Bool{Bool: true}))
	assert.True(t, FromBool(pgtype.Bool{Bool: true, Valid: true}))

	now := time.Date(2026, 7, 4, 20, 0, 0, 0, time.UTC)
	assert.True(t, FromTimestamptz(pgtype.Timestamptz{}).IsZero())
	assert.Equal(t, now, FromTimestamptz(pgtype.Timestamptz{Time: now, Valid: true}))
}
