package domain

import (
	"encoding/json"
	"fmt"
)

// EventKind names an answer stream event on the wire.
type EventKind string

// Event kinds, in the order they may appear in a stream.
const (
	EventCitation EventKind = "citation"
	EventToken    EventKind = "token"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// Event is one element of an answer stream.
// A stream is zero or more CitationEvents, then zero or more TokenEvents,
// then exactly one DoneEvent or ErrorEvent.
type Event interface {
	Kind() EventKind
}

// CitationEvent carries one retrieved citation.
type CitationEvent struct {
	Citation Citation
}

// TokenEvent carries one generated text delta.
type TokenEvent struct {
	Text string
}

// DoneEvent terminates a successful stream.
type DoneEvent struct {
	UsedRetrieval bool
}

// ErrorEvent terminates a failed stream.
type ErrorEvent struct {
	Message string
}

func (CitationEvent) Kind() EventKind { return EventCitation }
func (TokenEvent) Kind() EventKind    { return EventToken }
func (DoneEvent) Kind() EventKind     { return EventDone }
func (ErrorEvent) Kind() EventKind    { return EventError }

type tokenPayload struct {
	Text string `json:"text"`
}

type donePayload struct {
	UsedRetrieval bool `json:"used_retrieval"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// EncodeEvent returns the wire name and JSON payload of an event.
func EncodeEvent(e Event) (string, []byte, error) {
	var payload any
	switch ev := e.(type) {
	case CitationEvent:
		payload = ev.Citation
	case TokenEvent:
		payload = tokenPayload{Text: ev.Text}
	case DoneEvent:
		payload = donePayload{UsedRetrieval: ev.UsedRetrieval}
	case ErrorEvent:
		payload = errorPayload{Message: ev.Message}
	default:
		return "", nil, fmt.Errorf("encoding event %T: %w", e, ErrInvalidInput)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("encoding %s event: %w", e.Kind(), err)
	}
	return string(e.Kind()), data, nil
}

// DecodeEvent parses a wire event by name.
func DecodeEvent(name string, data []byte) (Event, error) {
	switch EventKind(name) {
	case EventCitation:
		var c Citation
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding citation event: %w", err)
		}
		return CitationEvent{Citation: c}, nil
	case EventToken:
		var p tokenPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding token event: %w", err)
		}
		return TokenEvent{Text: p.Text}, nil
	case EventDone:
		var p donePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding done event: %w", err)
		}
		return DoneEvent{UsedRetrieval: p.UsedRetrieval}, nil
	case EventError:
		var p errorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decoding error event: %w", err)
		}
		return ErrorEvent{Message: p.Message}, nil
	default:
		return nil, fmt.Errorf("unknown event %q: %w", name, ErrInvalidInput)
	}
}
