package bridge

import (
	"encoding/json"
	"fmt"

	"pkt.systems/webshell/schema"
)

// Kind distinguishes bridge envelopes.
type Kind string

const (
	// KindEvent is a fire-and-forget notification.
	KindEvent Kind = "event"
	// KindInvoke is a request that expects a reply with the same id.
	KindInvoke Kind = "invoke"
	// KindReply answers an invoke.
	KindReply Kind = "reply"
)

// Message is one JSON line on the bridge.
type Message struct {
	Kind    Kind            `json:"kind"`
	ID      uint64          `json:"id,omitempty"`
	Channel schema.Channel  `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (m Message) validate() error {
	switch m.Kind {
	case KindEvent:
		if m.Channel == "" {
			return fmt.Errorf("%w: event without channel", schema.ErrInvalidRequest)
		}
	case KindInvoke:
		if m.Channel == "" || m.ID == 0 {
			return fmt.Errorf("%w: invoke needs channel and id", schema.ErrInvalidRequest)
		}
	case KindReply:
		if m.ID == 0 {
			return fmt.Errorf("%w: reply without id", schema.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", schema.ErrInvalidRequest, m.Kind)
	}
	return nil
}

// RemoteError is an error string returned by the other side of an invoke.
type RemoteError struct {
	Channel schema.Channel
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge %s: %s", e.Channel, e.Message)
}

func marshalPayload(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
