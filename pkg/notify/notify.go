// Package notify delivers absentee notifications over pluggable transports.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/smart-attendance/pkg/config"
)

// Message is a single notification addressed to one recipient.
type Message struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Notifier delivers one message. Implementations own their retry policy.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// ErrNoRecipient is returned for messages without an address.
var ErrNoRecipient = errors.New("notification has no recipient")

// Transport names accepted in configuration.
const (
	TransportLog  = "log"
	TransportSMTP = "smtp"
)

// FromConfig builds the configured transport. Anything other than the log
// transport is wrapped in a QueuedNotifier so delivery runs off the request
// path; the returned stop func must be called on shutdown.
func FromConfig(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (Notifier, func(), error) {
	switch strings.ToLower(cfg.Transport) {
	case "", TransportLog:
		return NewLogNotifier(logger), func() {}, nil
	case TransportSMTP:
		smtpNotifier, err := NewSMTPNotifier(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		queued := NewQueuedNotifier(smtpNotifier, QueueOptions{
			Workers:    cfg.Workers,
			Retries:    cfg.Retries,
			RetryDelay: cfg.RetryDelay,
			Logger:     logger,
		})
		queued.Start(ctx)
		return queued, queued.Stop, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify transport %q", cfg.Transport)
	}
}
