package room

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Scheduler owns every timer of one room: the pre-draft countdown and, for the
// live turn, the tick ticker, the expiry timer and the final grace timer.
// It is driven only from the session goroutine. Timer goroutines never touch
// session state; they post messages tagged with the turn sequence (or
// countdown generation) that armed them and the session discards stale ones.
type Scheduler struct {
	clock  clockwork.Clock
	cfg    Config
	logger zerolog.Logger
	post   func(Msg) bool

	turn      *turnTimers
	countdown *countdownTimer
}

type turnTimers struct {
	seq      uint64
	ticker   clockwork.Ticker
	expiry   clockwork.Timer
	grace    clockwork.Timer
	tickDone chan struct{}
	stop     chan struct{}
}

type countdownTimer struct {
	gen   uint64
	timer clockwork.Timer
	stop  chan struct{}
}

// NewScheduler returns a scheduler that delivers timer messages through post.
func NewScheduler(clock clockwork.Clock, cfg Config, logger zerolog.Logger, post func(Msg) bool) *Scheduler {
	return &Scheduler{clock: clock, cfg: cfg, logger: logger, post: post}
}

// StartCountdown arms the countdown for generation gen, replacing any
// previous countdown.
func (s *Scheduler) StartCountdown(gen uint64) {
	s.CancelCountdown()
	c := &countdownTimer{
		gen:   gen,
		timer: s.clock.NewTimer(s.cfg.Countdown),
		stop:  make(chan struct{}),
	}
	s.countdown = c
	go s.await(c.timer, c.stop, countdownElapsed{gen: gen})

	s.logger.Debug().Uint64("countdown_gen", gen).Dur("duration", s.cfg.Countdown).Msg("countdown armed")
}

// CancelCountdown stops the countdown. Safe to call when none is armed.
func (s *Scheduler) CancelCountdown() {
	if s.countdown == nil {
		return
	}
	close(s.countdown.stop)
	stopAndDrainTimer(s.countdown.timer)
	s.countdown = nil
}

// Arm starts the timers for turn seq: a ticker every TickInterval and an
// expiry timer at TurnTime+Grace. Any previous turn's timers are cancelled.
func (s *Scheduler) Arm(seq uint64) {
	s.CancelTurn()
	t := &turnTimers{
		seq:      seq,
		ticker:   s.clock.NewTicker(s.cfg.TickInterval),
		expiry:   s.clock.NewTimer(s.cfg.TurnTime + s.cfg.Grace),
		tickDone: make(chan struct{}),
		stop:     make(chan struct{}),
	}
	s.turn = t
	go s.tick(t)
	go s.await(t.expiry, t.stop, turnExpired{seq: seq})

	s.logger.Debug().
		Uint64("turn_sequence", seq).
		Dur("expires_in", s.cfg.TurnTime+s.cfg.Grace).
		Msg("turn armed")
}

// StartGrace arms the final grace timer for turn seq. It reports false when
// seq is not the live turn or grace is already running.
func (s *Scheduler) StartGrace(seq uint64) bool {
	t := s.turn
	if t == nil || t.seq != seq || t.grace != nil {
		return false
	}
	s.stopTicker(t)
	t.grace = s.clock.NewTimer(s.cfg.FinalGrace)
	go s.await(t.grace, t.stop, graceExpired{seq: seq})
	return true
}

// TickRemaining returns the seconds a turn's n-th tick reports. The first
// tick reports the full turn time and each later one a TickInterval less,
// clamped at zero.
func (s *Scheduler) TickRemaining(n int) int {
	if n < 1 {
		n = 1
	}
	left := s.cfg.TurnTime - time.Duration(n-1)*s.cfg.TickInterval
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// StopTicker ends the tick broadcast for turn seq without touching expiry.
func (s *Scheduler) StopTicker(seq uint64) {
	if t := s.turn; t != nil && t.seq == seq {
		s.stopTicker(t)
	}
}

// Live reports the sequence of the armed turn, if any.
func (s *Scheduler) Live() (uint64, bool) {
	if s.turn == nil {
		return 0, false
	}
	return s.turn.seq, true
}

// CancelTurn stops the live turn's timers. Safe to call repeatedly.
func (s *Scheduler) CancelTurn() {
	t := s.turn
	if t == nil {
		return
	}
	close(t.stop)
	s.stopTicker(t)
	stopAndDrainTimer(t.expiry)
	if t.grace != nil {
		stopAndDrainTimer(t.grace)
	}
	s.turn = nil

	s.logger.Debug().Uint64("turn_sequence", t.seq).Msg("turn timers cancelled")
}

// Cancel stops every timer the scheduler owns.
func (s *Scheduler) Cancel() {
	s.CancelCountdown()
	s.CancelTurn()
}

func (s *Scheduler) stopTicker(t *turnTimers) {
	select {
	case <-t.tickDone:
	default:
		close(t.tickDone)
		t.ticker.Stop()
	}
}

func (s *Scheduler) tick(t *turnTimers) {
	n := 0
	for {
		select {
		case <-t.ticker.Chan():
			n++
			s.post(turnTick{seq: t.seq, n: n})
		case <-t.tickDone:
			return
		case <-t.stop:
			return
		}
	}
}

func (s *Scheduler) await(timer clockwork.Timer, stop <-chan struct{}, msg Msg) {
	select {
	case <-timer.Chan():
		s.post(msg)
	case <-stop:
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
