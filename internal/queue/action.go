package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType is the closed set of mutations that can be replayed offline.
type ActionType int

const (
	CheckItem ActionType = iota + 1
	UncheckItem
	AddToPantry
)

// ActionTypes lists every ActionType; switch statements over ActionType are
// expected to cover all of them.
var ActionTypes = []ActionType{CheckItem, UncheckItem, AddToPantry}

func (t ActionType) String() string {
	switch t {
	case CheckItem:
		return "check_item"
	case UncheckItem:
		return "uncheck_item"
	case AddToPantry:
		return "add_to_pantry"
	default:
		return fmt.Sprintf("ActionType(%d)", int(t))
	}
}

// ParseActionType maps the wire name back to an ActionType.
func ParseActionType(s string) (ActionType, error) {
	for _, t := range ActionTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown action type %q", s)
}

func (t ActionType) MarshalText() ([]byte, error) {
	switch t {
	case CheckItem, UncheckItem, AddToPantry:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("cannot encode %s", t)
	}
}

func (t *ActionType) UnmarshalText(b []byte) error {
	parsed, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TouchesChecked reports whether the action only sets the checked flag.
func (t ActionType) TouchesChecked() bool {
	return t == CheckItem || t == UncheckItem
}

// PendingAction is a user mutation that the server has not confirmed yet.
type PendingAction struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	ListID    string     `json:"list_id"`
	ItemID    string     `json:"item_id"`
	Timestamp time.Time  `json:"timestamp"`

	Attempts  int        `json:"attempts,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	NotBefore *time.Time `json:"not_before,omitempty"`
}

// NewAction builds a PendingAction with a fresh time-ordered id.
func NewAction(typ ActionType, listID, itemID string, now time.Time) PendingAction {
	return PendingAction{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      typ,
		ListID:    listID,
		ItemID:    itemID,
		Timestamp: now.UTC(),
	}
}

// Ready reports whether the action may be replayed at now.
func (a PendingAction) Ready(now time.Time) bool {
	return a.NotBefore == nil || !now.Before(*a.NotBefore)
}

// ItemKey identifies the item an action targets.
func (a PendingAction) ItemKey() ItemKey {
	return ItemKey{ListID: a.ListID, ItemID: a.ItemID}
}

// ItemKey is a (list, item) pair.
type ItemKey struct {
	ListID string
	ItemID string
}

// DeadLetter is an action removed from replay.
type DeadLetter struct {
	Action PendingAction `json:"action"`
	Reason string        `json:"reason"`
	DeadAt time.Time     `json:"dead_at"`
}
