// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/hardstore/internal/backup"
	"github.com/tomtom215/hardstore/internal/logging"
)

// Handler consumes one decoded event.
type Handler func(ctx context.Context, event backup.Event)

// Listener subscribes to the bus and fans each event out to its handlers.
type Listener struct {
	bus      *Bus
	handlers []Handler
	log      *logging.OperationLogger
}

// NewListener creates a listener for bus.
func NewListener(bus *Bus, handlers ...Handler) *Listener {
	return &Listener{
		bus:      bus,
		handlers: handlers,
		log:      logging.NewOperationLogger(),
	}
}

// Run consumes events until ctx is done. It returns ErrClosed when the bus
// is closed underneath it.
func (l *Listener) Run(ctx context.Context) error {
	msgs, err := l.bus.Subscribe(ctx)
	if err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		return fmt.Errorf("subscribe to %s: %w", Topic, err)
	}

	l.log.LogSubscriptionStarted(Topic)
	defer l.log.LogSubscriptionStopped(Topic)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrClosed
			}

			event, err := Decode(msg)
			if err != nil {
				logging.Warn().Err(err).Msg("Discarding undecodable event")
				msg.Ack()
				continue
			}

			hctx := ctx
			if id := msg.Metadata.Get("correlation_id"); id != "" {
				hctx = logging.ContextWithCorrelationID(ctx, id)
			}
			for _, h := range l.handlers {
				h(hctx, event)
			}
			msg.Ack()
		}
	}
}

// LogHandler writes every event to the structured log. Failures are logged
// at warn level and a manual intervention alarm at error level with
// alert=true.
func LogHandler(ctx context.Context, event backup.Event) {
	e := logging.CtxInfo(ctx)
	switch event.Type {
	case backup.EventBackupFailed, backup.EventRestoreFailed:
		e = logging.CtxWarn(ctx)
	case backup.EventManualIntervention:
		e = logging.CtxError(ctx).Bool("alert", true)
	}

	e = e.Str("event", string(event.Type)).Time("at", event.Timestamp)
	if event.OperationID != "" {
		e = e.Str("operation_id", event.OperationID)
	}
	if event.FileName != "" {
		e = e.Str("file", event.FileName)
	}
	if event.ErrorKind != "" {
		e = e.Str("error_kind", string(event.ErrorKind))
	}
	if event.Type == backup.EventRetentionCompleted {
		e = e.Int("deleted", event.Deleted)
	}
	if event.Automatic {
		e = e.Bool("automatic", true)
	}
	e.Msg(eventMessage(event))
}

func eventMessage(event backup.Event) string {
	if event.Message != "" {
		return event.Message
	}
	return "backup lifecycle event"
}

// Recorder keeps the most recent events in memory for the status API.
type Recorder struct {
	mu     sync.Mutex
	events []backup.Event
	next   int
	full   bool
}

// NewRecorder creates a recorder holding up to size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = 50
	}
	return &Recorder{events: make([]backup.Event, size)}
}

// Handle records event. It is a Handler.
func (r *Recorder) Handle(_ context.Context, event backup.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = event
	r.next = (r.next + 1) % len(r.events)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns the recorded events, newest first.
func (r *Recorder) Recent() []backup.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.events)
	}
	out := make([]backup.Event, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.events[(r.next-i+len(r.events))%len(r.events)])
	}
	return out
}
