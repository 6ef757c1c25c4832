package room

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/corpsdraft/go/internal/draft/events"
	"github.com/mcdev12/corpsdraft/go/internal/models"
)

func (s *Session) activate() {
	items := s.pending.items
	s.pending = nil
	s.sched.CancelCountdown()

	s.pool.Initialize(items)
	s.state = StateActive
	s.turnSequence = 0
	s.turnIndex = 0
	s.round = 1
	s.lastPick = nil
	s.startedAt = s.clock.Now()

	order := make([]string, 0, s.roster.Len())
	for _, p := range s.roster.Members() {
		order = append(order, p.ID)
	}
	s.deps.Journal.Append(s.id, events.DraftStarted, events.DraftStartedPayload{
		RoomID:    s.id,
		StartedAt: s.startedAt,
		PickOrder: order,
		PoolSize:  s.pool.Len(),
	})

	s.logger.Info().
		Int("players", s.roster.Len()).
		Int("pool_size", s.pool.Len()).
		Msg("draft started")

	s.broadcast(DraftBegin{})
	s.startTurn()
}

// startTurn arms the scheduler for the current turn sequence and announces
// it. An empty pool ends the turn cycle instead.
func (s *Session) startTurn() {
	if s.pool.IsEmpty() {
		s.sched.CancelTurn()
		s.logger.Info().Int("round", s.round).Msg("pick pool exhausted")
		s.broadcast(PoolExhausted{})
		return
	}

	n := s.roster.Len()
	current := s.roster.At(s.turnIndex).Player
	next := s.roster.At((s.turnIndex + 1) % n).Player

	s.sched.Arm(s.turnSequence)

	s.logger.Debug().
		Uint64("turn_sequence", s.turnSequence).
		Str("player_id", current.ID).
		Int("round", s.round).
		Msg("turn started")

	s.broadcast(TurnStarted{
		Sequence:  s.turnSequence,
		Current:   current,
		Next:      next,
		Remaining: s.pool.Remaining(),
		Round:     s.round,
	})
}

// advance ends the live turn and starts the next one. It is the only place
// the turn index moves forward.
func (s *Session) advance() {
	s.sched.CancelTurn()
	s.turnSequence++
	s.turnIndex = (s.turnIndex + 1) % s.roster.Len()
	if s.turnIndex == 0 {
		s.round++
	}
	s.startTurn()
}

func (s *Session) handleSubmitPick(m SubmitPick) {
	if s.state != StateActive {
		return
	}
	idx := s.roster.IndexOfConn(m.Conn)
	if idx < 0 {
		return
	}
	seq, live := s.sched.Live()
	if !live || seq != s.turnSequence {
		return
	}
	if m.Sequence != nil && *m.Sequence != seq {
		s.logger.Debug().
			Uint64("turn_sequence", seq).
			Uint64("pick_sequence", *m.Sequence).
			Msg("stale pick dropped")
		return
	}
	picker := s.roster.At(idx).Player
	if idx != s.turnIndex {
		s.logger.Debug().Str("player_id", picker.ID).Msg("pick out of turn rejected")
		return
	}

	item, ok := s.pool.Remove(m.ItemID)
	if !ok {
		// The turn still ends and the room still hears about the pick.
		s.logger.Warn().
			Str("player_id", picker.ID).
			Str("caption_id", m.ItemID).
			Msg("picked caption not in pool")
		s.broadcast(PickAccepted{Player: picker, Item: models.Caption{ID: m.ItemID}, Auto: m.Auto})
	} else {
		s.lastPick = &item
		s.deps.Journal.Append(s.id, events.PickMade, events.PickMadePayload{
			RoomID:       s.id,
			PlayerID:     picker.ID,
			PlayerName:   picker.DisplayName,
			CaptionID:    item.ID,
			Corps:        item.Corps,
			Caption:      item.Caption,
			Round:        s.round,
			TurnSequence: seq,
			AutoPick:     m.Auto,
			MadeAt:       s.clock.Now(),
		})
		s.logger.Info().
			Str("player_id", picker.ID).
			Str("caption_id", item.ID).
			Bool("auto", m.Auto).
			Msg("pick accepted")
		s.broadcast(PickAccepted{Player: picker, Item: item, Auto: m.Auto})
	}

	s.advance()
}

func (s *Session) handleTick(m turnTick) {
	if s.state != StateActive || m.seq != s.turnSequence {
		return
	}
	remaining := s.sched.TickRemaining(m.n)
	s.broadcast(Tick{Sequence: m.seq, Remaining: remaining})
	if remaining <= 0 {
		s.sched.StopTicker(m.seq)
	}
}

func (s *Session) handleTurnExpired(m turnExpired) {
	if s.state != StateActive || m.seq != s.turnSequence {
		s.logger.Debug().Uint64("turn_sequence", m.seq).Msg("stale expiry dropped")
		return
	}
	picker := s.roster.At(s.turnIndex)
	picker.Conn.Send(NoPickWarning{Sequence: m.seq})
	s.sched.StartGrace(m.seq)

	s.logger.Info().
		Uint64("turn_sequence", m.seq).
		Str("player_id", picker.Player.ID).
		Msg("no pick received, grace started")
}

func (s *Session) handleGraceExpired(m graceExpired) {
	if s.state != StateActive || m.seq != s.turnSequence {
		s.logger.Debug().Uint64("turn_sequence", m.seq).Msg("stale grace dropped")
		return
	}
	picker := s.roster.At(s.turnIndex).Player
	s.deps.Journal.Append(s.id, events.TurnSkipped, events.TurnSkippedPayload{
		RoomID:       s.id,
		PlayerID:     picker.ID,
		Round:        s.round,
		TurnSequence: m.seq,
		SkippedAt:    s.clock.Now(),
	})
	s.logger.Info().
		Uint64("turn_sequence", m.seq).
		Str("player_id", picker.ID).
		Msg("turn forced forward without selection")
	s.advance()
}

// roster churn

func (s *Session) handleCancelDraft(m CancelDraft) {
	if s.state != StateActive || !s.isOwner(m.Conn) {
		return
	}
	s.cancelDraft("cancelled by owner")
}

func (s *Session) handleLineupComplete(m LineupComplete) {
	if s.state != StateActive {
		return
	}
	idx := s.roster.Leave(m.Conn)
	if idx < 0 {
		return
	}
	s.logger.Info().Str("connection_id", m.Conn.ID()).Int("roster_size", s.roster.Len()).Msg("lineup complete")
	if s.roster.Len() == 0 {
		s.conclude()
		return
	}
	s.afterRemoval(idx)
}

func (s *Session) handleDisconnected(m Disconnected) {
	if m.Conn == nil {
		return
	}
	_, known := s.conns[m.Conn.ID()]
	if !known && s.roster.IndexOfConn(m.Conn) < 0 {
		return
	}
	delete(s.conns, m.Conn.ID())
	if s.dropMember(m.Conn) {
		return
	}
	s.retireIfIdle()
}

// dropMember removes the roster entry bound to conn, if any, and repairs the
// turn. It reports true when the removal cancelled the draft.
func (s *Session) dropMember(conn Conn) bool {
	idx := s.roster.Leave(conn)
	if idx < 0 {
		return false
	}
	s.logger.Info().Str("connection_id", conn.ID()).Int("roster_size", s.roster.Len()).Msg("player left")
	if s.state != StateActive {
		s.broadcast(RosterUpdated{Players: s.roster.Members()})
		return false
	}
	if s.roster.Len() == 0 {
		s.cancelDraft("roster empty")
		return true
	}
	s.afterRemoval(idx)
	return false
}

// afterRemoval keeps the turn index pointing at a valid roster member after
// the entry at idx was removed from a non-empty roster.
func (s *Session) afterRemoval(idx int) {
	switch {
	case idx < s.turnIndex:
		s.turnIndex--
	case idx == s.turnIndex:
		if s.turnIndex >= s.roster.Len() {
			s.turnIndex = 0
			s.round++
		}
		if _, live := s.sched.Live(); live {
			s.sched.CancelTurn()
			s.turnSequence++
			s.broadcast(RosterUpdated{Players: s.roster.Members()})
			s.startTurn()
			return
		}
	}
	s.broadcast(RosterUpdated{Players: s.roster.Members()})
}

func (s *Session) cancelDraft(reason string) {
	s.sched.Cancel()
	s.state = StateLobby
	s.pending = nil
	s.roster.Clear()
	s.pool.Reset()
	s.turnIndex = 0
	s.round = 0
	s.lastPick = nil

	s.deps.Journal.Append(s.id, events.DraftCancelled, events.DraftCancelledPayload{
		RoomID:      s.id,
		CancelledAt: s.clock.Now(),
		Reason:      reason,
	})
	s.logger.Info().Str("reason", reason).Msg("draft cancelled")

	s.broadcast(DraftCancelled{})
	s.disconnectAll()
	s.retireIfIdle()
}

// conclude is terminal. Timers stop before any connection is closed and the
// conclusion record is written once, off the session goroutine.
func (s *Session) conclude() {
	s.sched.Cancel()
	s.state = StateConcluded
	leftovers := s.pool.Remaining()

	s.logger.Info().
		Int("leftovers", len(leftovers)).
		Dur("duration", s.clock.Since(s.startedAt)).
		Msg("draft concluded")

	s.broadcast(DraftConcluded{Leftovers: leftovers})
	go s.persistConclusion(models.RemainingPicks{
		ID:            uuid.New().String(),
		TourID:        s.id,
		LeftOverPicks: leftovers,
	})
	s.disconnectAll()
	s.stop()
}

// persistConclusion runs detached from the session context so it survives
// the session stopping.
func (s *Session) persistConclusion(record models.RemainingPicks) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LookupTimeout)
	defer cancel()

	if err := s.deps.Leftovers.RecordLeftovers(ctx, record); err != nil {
		s.logger.Error().Err(err).Msg("failed to record leftover picks")
	}
	if err := s.deps.Rooms.MarkComplete(ctx, s.id); err != nil {
		s.logger.Error().Err(err).Msg("failed to mark tour complete")
	}
}
