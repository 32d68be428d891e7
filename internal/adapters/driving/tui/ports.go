// Package tui provides the interactive terminal chat over the indexed
// documents. It is a driving adapter: all work goes through driving ports.
package tui

import (
	"errors"

	"github.com/custodia-labs/sea-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI talks to.
type Ports struct {
	// Chat streams answers and owns session history.
	Chat driving.ChatService
}

// NewPorts creates a Ports aggregate.
func NewPorts(chat driving.ChatService) *Ports {
	return &Ports{Chat: chat}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return errors.Join(ErrInvalidPorts, ErrMissingChatService)
	}
	return nil
}
