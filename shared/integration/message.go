package integration

import (
	"time"

	"github.com/google/uuid"
)

// Message carries a payload between stages. CycleID ties every message
// derived from one poll together.
type Message[T any] struct {
	CycleID   string
	Payload   T
	Headers   map[string]string
	Timestamp time.Time
}

// NewMessage starts a new cycle
func NewMessage[T any](payload T) Message[T] {
	return Message[T]{
		CycleID:   uuid.New().String(),
		Payload:   payload,
		Headers:   map[string]string{},
		Timestamp: time.Now().UTC(),
	}
}

// Derive builds a message in the same cycle with a copy of the headers
func Derive[T, U any](parent Message[T], payload U) Message[U] {
	headers := make(map[string]string, len(parent.Headers))
	for k, v := range parent.Headers {
		headers[k] = v
	}
	return Message[U]{
		CycleID:   parent.CycleID,
		Payload:   payload,
		Headers:   headers,
		Timestamp: time.Now().UTC(),
	}
}
