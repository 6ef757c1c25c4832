package room

import (
	"fmt"

	"github.com/mcdev12/corpsdraft/go/internal/models"
)

// Entry is one identified player and the connection they joined on.
type Entry struct {
	Player models.Player
	Conn   Conn
}

// Roster is the insertion-ordered list of identified players in a room.
// A player id appears at most once.
type Roster struct {
	entries []Entry
}

// Join appends player on conn. It fails with ErrDuplicatePlayer when the
// player id is already present; the roster is left untouched.
func (r *Roster) Join(player models.Player, conn Conn) error {
	if r.indexOfPlayer(player.ID) >= 0 {
		return fmt.Errorf("join %s: %w", player.ID, ErrDuplicatePlayer)
	}
	r.entries = append(r.entries, Entry{Player: player, Conn: conn})
	return nil
}

// Leave removes the entry bound to conn and returns its former index, or -1
// when conn is not on the roster.
func (r *Roster) Leave(conn Conn) int {
	idx := r.IndexOfConn(conn)
	if idx < 0 {
		return -1
	}
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	return idx
}

// Members returns the players in join order.
func (r *Roster) Members() []models.Player {
	out := make([]models.Player, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Player
	}
	return out
}

// Entries returns a copy of the roster entries.
func (r *Roster) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// At returns the entry at index i.
func (r *Roster) At(i int) Entry { return r.entries[i] }

// Len returns the roster size.
func (r *Roster) Len() int { return len(r.entries) }

// IndexOfConn returns the roster index bound to conn, or -1.
func (r *Roster) IndexOfConn(conn Conn) int {
	for i, e := range r.entries {
		if e.Conn == conn {
			return i
		}
	}
	return -1
}

// Lookup returns the entry bound to conn.
func (r *Roster) Lookup(conn Conn) (Entry, bool) {
	idx := r.IndexOfConn(conn)
	if idx < 0 {
		return Entry{}, false
	}
	return r.entries[idx], true
}

// Clear removes every entry.
func (r *Roster) Clear() { r.entries = nil }

func (r *Roster) indexOfPlayer(id string) int {
	for i, e := range r.entries {
		if e.Player.ID == id {
			return i
		}
	}
	return -1
}
