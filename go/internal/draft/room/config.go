package room

import "time"

// Config holds the timing constants for a draft room.
type Config struct {
	// TurnTime is the visible countdown for each turn.
	TurnTime time.Duration
	// Grace is added to TurnTime before the no-pick warning goes out.
	Grace time.Duration
	// FinalGrace is how long an auto-pick is still accepted after the warning.
	FinalGrace time.Duration
	// TickInterval is how often the remaining turn time is broadcast.
	TickInterval time.Duration
	// Countdown is the delay between StartDraft and the first turn.
	Countdown time.Duration
	// LookupTimeout bounds each collaborator call made on behalf of the room.
	LookupTimeout time.Duration
	// InboxSize is the buffer of the session's command queue.
	InboxSize int
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		TurnTime:      45 * time.Second,
		Grace:         2 * time.Second,
		FinalGrace:    time.Second,
		TickInterval:  time.Second,
		Countdown:     5 * time.Second,
		LookupTimeout: 10 * time.Second,
		InboxSize:     64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TurnTime <= 0 {
		c.TurnTime = d.TurnTime
	}
	if c.Grace < 0 {
		c.Grace = d.Grace
	}
	if c.FinalGrace <= 0 {
		c.FinalGrace = d.FinalGrace
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.Countdown <= 0 {
		c.Countdown = d.Countdown
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = d.LookupTimeout
	}
	if c.InboxSize <= 0 {
		c.InboxSize = d.InboxSize
	}
	return c
}
