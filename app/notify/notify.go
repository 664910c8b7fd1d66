package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/screening-comb/app/event"
)

// Notifier delivers newly discovered events.
type Notifier interface {
	Notify(ctx context.Context, e event.Event) error
	NotifyBootstrap(ctx context.Context, count int) error
}

var (
	_ Notifier = (*Log)(nil)
	_ Notifier = (*Multi)(nil)
)

// Log writes one structured log line per event.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, e event.Event) error {
	l.logger.Info("New event",
		"vendor", e.Vendor,
		"venue", e.VenueName,
		"title", e.MovieTitle,
		"type", string(e.Type),
		"date", e.PlayDate.String(),
		"time", e.StartTime,
		"hall", e.Hall)
	return nil
}

func (l *Log) NotifyBootstrap(ctx context.Context, count int) error {
	l.logger.Info("Monitoring started", "tracked_events", count)
	return nil
}

// Multi fans out to every notifier and joins their errors.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, e event.Event) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) NotifyBootstrap(ctx context.Context, count int) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.NotifyBootstrap(ctx, count); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
