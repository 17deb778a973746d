package domain

import "github.com/pkg/errors"

// ActionKind identifies which user action request is open.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionBuyIn
	ActionRefund
	ActionTransfer
)

// ErrUnknownAction is returned for action names or values outside the closed set.
var ErrUnknownAction = errors.New("unknown action")

// action string constants to avoid magic strings
const (
	actionStringNone     = "none"
	actionStringBuyIn    = "buyin"
	actionStringRefund   = "refund"
	actionStringTransfer = "transfer"
)

// String returns the string representation of the action
func (a ActionKind) String() string {
	switch a {
	case ActionNone:
		return actionStringNone
	case ActionBuyIn:
		return actionStringBuyIn
	case ActionRefund:
		return actionStringRefund
	case ActionTransfer:
		return actionStringTransfer
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the defined kinds.
func (a ActionKind) Valid() bool {
	switch a {
	case ActionNone, ActionBuyIn, ActionRefund, ActionTransfer:
		return true
	}
	return false
}

// ParseActionKind parses the string form produced by String.
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case actionStringNone, "":
		return ActionNone, nil
	case actionStringBuyIn:
		return ActionBuyIn, nil
	case actionStringRefund:
		return ActionRefund, nil
	case actionStringTransfer:
		return ActionTransfer, nil
	}
	return ActionNone, errors.Wrapf(ErrUnknownAction, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a ActionKind) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, errors.Wrapf(ErrUnknownAction, "%d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ActionKind) UnmarshalText(text []byte) error {
	kind, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*a = kind
	return nil
}
