package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcdev12/corpsdraft/go/internal/draft/room"
)

// ServerFrame is the envelope for every message written to a client.
type ServerFrame struct {
	Type      room.EventType `json:"type"`
	RoomID    string         `json:"roomId"`
	Timestamp time.Time      `json:"timestamp"`
	Data      room.Event     `json:"data"`
}

// ClientFrame is the envelope for every message read from a client.
type ClientFrame struct {
	Type CommandType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CommandType names an inbound client command.
type CommandType string

const (
	CommandIdentify        CommandType = "identify"
	CommandStartDraft      CommandType = "start-draft"
	CommandCancelCountdown CommandType = "cancel-countdown"
	CommandCancelDraft     CommandType = "cancel-draft"
	CommandSubmitPick      CommandType = "submit-pick"
	CommandSubmitAutoPick  CommandType = "submit-auto-pick"
	CommandLineupComplete  CommandType = "lineup-complete"
)

// IdentifyPayload is the data of an identify command
type IdentifyPayload struct {
	PlayerID string `json:"playerId"`
}

// PickPayload is the data of a submit-pick or submit-auto-pick command
type PickPayload struct {
	ItemID   string  `json:"itemId"`
	Sequence *uint64 `json:"sequence,omitempty"`
}

// EncodeEvent wraps ev in a ServerFrame and marshals it.
func EncodeEvent(roomID string, ev room.Event, now time.Time) ([]byte, error) {
	data, err := json.Marshal(ServerFrame{
		Type:      ev.Type(),
		RoomID:    roomID,
		Timestamp: now.UTC(),
		Data:      ev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", ev.Type(), err)
	}
	return data, nil
}

// DecodeCommand parses a client frame into the session message it stands for.
func DecodeCommand(conn room.Conn, raw []byte) (room.Msg, error) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("failed to parse client frame: %w", err)
	}

	switch frame.Type {
	case CommandIdentify:
		var payload IdentifyPayload
		if err := unmarshalData(frame, &payload); err != nil {
			return nil, err
		}
		if payload.PlayerID == "" {
			return nil, fmt.Errorf("identify: playerId is required")
		}
		return room.Identify{Conn: conn, PlayerID: payload.PlayerID}, nil

	case CommandStartDraft:
		return room.StartDraft{Conn: conn}, nil

	case CommandCancelCountdown:
		return room.CancelCountdown{Conn: conn}, nil

	case CommandCancelDraft:
		return room.CancelDraft{Conn: conn}, nil

	case CommandSubmitPick, CommandSubmitAutoPick:
		var payload PickPayload
		if err := unmarshalData(frame, &payload); err != nil {
			return nil, err
		}
		if payload.ItemID == "" {
			return nil, fmt.Errorf("%s: itemId is required", frame.Type)
		}
		return room.SubmitPick{
			Conn:     conn,
			ItemID:   payload.ItemID,
			Auto:     frame.Type == CommandSubmitAutoPick,
			Sequence: payload.Sequence,
		}, nil

	case CommandLineupComplete:
		return room.LineupComplete{Conn: conn}, nil

	default:
		return nil, fmt.Errorf("unknown command type %q", frame.Type)
	}
}

func unmarshalData(frame ClientFrame, v any) error {
	if len(frame.Data) == 0 {
		return fmt.Errorf("%s: data is required", frame.Type)
	}
	if err := json.Unmarshal(frame.Data, v); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", frame.Type, err)
	}
	return nil
}
