// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/hardstore/internal/events"
)

// EventListener consumes lifecycle events until ctx ends. It is satisfied
// by *events.Listener.
type EventListener interface {
	Run(ctx context.Context) error
}

// EventListenerService runs an EventListener under supervision. A closed
// bus is terminal: the service asks not to be restarted.
type EventListenerService struct {
	listener EventListener
	name     string
}

// NewEventListenerService wraps listener.
func NewEventListenerService(listener EventListener) *EventListenerService {
	return &EventListenerService{
		listener: listener,
		name:     "event-listener",
	}
}

// Serve implements suture.Service.
func (s *EventListenerService) Serve(ctx context.Context) error {
	err := s.listener.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, events.ErrClosed):
		return suture.ErrDoNotRestart
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("event listener failed: %w", err)
	}
}

func (s *EventListenerService) String() string {
	return s.name
}
