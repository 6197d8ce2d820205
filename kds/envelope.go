package kds

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yeremiapane/waiter-dashboard/models"
)

type EventType string

// Inbound frame types
const (
	EventHistory      EventType = "history"
	EventMessage      EventType = "message"
	EventConfirmation EventType = "confirmation"
	EventCancellation EventType = "cancellation"
)

// Outbound command types
const (
	CommandConfirmation = "confirmation"
	CommandCancellation = "cancellation"
	CommandCloseTable   = "closeTable"
)

var ErrMalformedFrame = errors.New("malformed frame")

// Frame adalah envelope mentah {type, data} dari backend
type Frame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Event adalah frame yang sudah diparse. Field yang terisi tergantung Type:
// History untuk history, Entry untuk message, Update untuk confirmation/cancellation.
type Event struct {
	Type    EventType
	History []models.Entry
	Entry   models.Entry
	Update  models.StatusUpdate
}

// Command dikirim staff ke backend, tanpa menunggu ack
type Command struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

func ConfirmCommand(entryID string) Command {
	return Command{Type: CommandConfirmation, ID: entryID}
}

func CancelCommand(entryID string) Command {
	return Command{Type: CommandCancellation, ID: entryID}
}

func CloseTableCommand() Command {
	return Command{Type: CommandCloseTable}
}

// ParseFrame -> parse dan validasi satu frame. Error selalu membungkus ErrMalformedFrame.
func ParseFrame(raw []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch f.Type {
	case EventHistory:
		var entries []models.Entry
		if err := decodeData(f.Data, &entries); err != nil {
			return Event{}, err
		}
		for i, e := range entries {
			if err := validateEntry(e); err != nil {
				return Event{}, fmt.Errorf("%w: history[%d]: %v", ErrMalformedFrame, i, err)
			}
		}
		if entries == nil {
			entries = []models.Entry{}
		}
		return Event{Type: EventHistory, History: entries}, nil

	case EventMessage:
		var e models.Entry
		if err := decodeData(f.Data, &e); err != nil {
			return Event{}, err
		}
		if e.Status == "" {
			e.Status = models.StatusPending
		}
		if err := validateEntry(e); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		// entry baru selalu pending
		e.Status = models.StatusPending
		return Event{Type: EventMessage, Entry: e}, nil

	case EventConfirmation, EventCancellation:
		var u models.StatusUpdate
		if err := decodeData(f.Data, &u); err != nil {
			return Event{}, err
		}
		if u.ID == "" {
			return Event{}, fmt.Errorf("%w: %s without id", ErrMalformedFrame, f.Type)
		}
		want := statusFor(f.Type)
		if u.Status == "" {
			u.Status = want
		}
		if u.Status != want {
			return Event{}, fmt.Errorf("%w: %s carries status %q", ErrMalformedFrame, f.Type, u.Status)
		}
		return Event{Type: f.Type, Update: u}, nil
	}

	return Event{}, fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, f.Type)
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformedFrame)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return nil
}

func validateEntry(e models.Entry) error {
	if e.ID == "" {
		return errors.New("entry without id")
	}
	if !e.Action.Valid() {
		return fmt.Errorf("unknown action %q", e.Action)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("unknown status %q", e.Status)
	}
	return nil
}

func statusFor(t EventType) models.Status {
	if t == EventConfirmation {
		return models.StatusConfirmed
	}
	return models.StatusCancelled
}
