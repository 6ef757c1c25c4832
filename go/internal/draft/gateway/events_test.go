package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
	"github.com/mcdev12/corpsdraft/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct{}

func (nopConn) ID() string       { return "nop" }
func (nopConn) Send(room.Event) {}
func (nopConn) Close()           {}

func TestDecodeCommand(t *testing.T) {
	conn := nopConn{}
	seq := uint64(3)

	tests := []struct {
		name string
		raw  string
		want room.Msg
	}{
		{
			name: "identify",
			raw:  `{"type":"identify","data":{"playerId":"ana"}}`,
			want: room.Identify{Conn: conn, PlayerID: "ana"},
		},
		{
			name: "start draft",
			raw:  `{"type":"start-draft"}`,
			want: room.StartDraft{Conn: conn},
		},
		{
			name: "cancel countdown",
			raw:  `{"type":"cancel-countdown"}`,
			want: room.CancelCountdown{Conn: conn},
		},
		{
			name: "cancel draft",
			raw:  `{"type":"cancel-draft"}`,
			want: room.CancelDraft{Conn: conn},
		},
		{
			name: "pick",
			raw:  `{"type":"submit-pick","data":{"itemId":"c1"}}`,
			want: room.SubmitPick{Conn: conn, ItemID: "c1"},
		},
		{
			name: "auto pick with sequence",
			raw:  `{"type":"submit-auto-pick","data":{"itemId":"c2","sequence":3}}`,
			want: room.SubmitPick{Conn: conn, ItemID: "c2", Auto: true, Sequence: &seq},
		},
		{
			name: "lineup complete",
			raw:  `{"type":"lineup-complete"}`,
			want: room.LineupComplete{Conn: conn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCommand(conn, []byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":          `{"type":`,
		"unknown type":      `{"type":"trade-pick"}`,
		"identify no data":  `{"type":"identify"}`,
		"identify empty id": `{"type":"identify","data":{"playerId":""}}`,
		"pick without item": `{"type":"submit-pick","data":{}}`,
		"pick bad data":     `{"type":"submit-pick","data":"c1"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCommand(nopConn{}, []byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestEncodeEvent(t *testing.T) {
	now := time.Date(2026, 7, 4, 19, 30, 0, 0, time.UTC)
	ev := room.PickAccepted{
		Player: models.Player{ID: "ana", DisplayName: "Ana"},
		Item:   models.Caption{ID: "c1", Corps: "Blue Devils", Caption: "Brass"},
	}

	data, err := EncodeEvent("tour-1", ev, now)
	require.NoError(t, err)

	var frame struct {
		Type      string    `json:"type"`
		RoomID    string    `json:"roomId"`
		Timestamp time.Time `json:"timestamp"`
		Data      struct {
			Player models.Player  `json:"player"`
			Item   models.Caption `json:"item"`
			Auto   bool           `json:"auto"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))

	assert.Equal(t, "pick-accepted", frame.Type)
	assert.Equal(t, "tour-1", frame.RoomID)
	assert.True(t, now.Equal(frame.Timestamp))
	assert.Equal(t, "Blue Devils", frame.Data.Item.Corps)
	assert.Equal(t, "ana", frame.Data.Player.ID)
	assert.False(t, frame.Data.Auto)
}
