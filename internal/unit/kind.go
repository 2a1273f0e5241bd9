// Package unit maps (channel, service-kind) pairs onto systemd unit names.
package unit

import (
	"errors"
	"fmt"
)

// Kind identifies one of the three per-channel managed processes.
type Kind string

const (
	KindIngest  Kind = "ingest"  // SRT receiver
	KindRecord  Kind = "record"  // recorder
	KindPublish Kind = "publish" // RTMP re-publisher
)

var ErrUnknownServiceKind = errors.New("unknown service kind")

// Kinds returns all recognized service kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindIngest, KindRecord, KindPublish}
}

// ParseKind validates a raw string against the recognized kinds.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIngest, KindRecord, KindPublish:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownServiceKind, s)
}

func (k Kind) String() string { return string(k) }

// Action is a supervisor verb applied to a unit.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

var ErrInvalidAction = errors.New("invalid action")

// ParseAction validates a raw string against the supported supervisor verbs.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionStart, ActionStop, ActionRestart:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

func (a Action) String() string { return string(a) }
