package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/deusflow/policydigest/internal/config"
	"github.com/deusflow/policydigest/internal/email"
	"github.com/deusflow/policydigest/internal/metrics"
	"github.com/deusflow/policydigest/internal/telegram"
)

// Notifier delivers a finished report.
type Notifier interface {
	Name() string
	Deliver(ctx context.Context, subject, body string) error
}

// StdoutNotifier prints the report.
type StdoutNotifier struct {
	w io.Writer
}

func NewStdoutNotifier(w io.Writer) *StdoutNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutNotifier{w: w}
}

func (s *StdoutNotifier) Name() string { return config.ChannelStdout }

func (s *StdoutNotifier) Deliver(_ context.Context, _, body string) error {
	_, err := fmt.Fprintln(s.w, body)
	return err
}

func buildNotifiers(cfg *config.Config, logger *slog.Logger) ([]Notifier, error) {
	var out []Notifier
	for _, ch := range cfg.Delivery {
		switch ch {
		case config.ChannelEmail:
			out = append(out, email.New(cfg.Email(), logger))
		case config.ChannelTelegram:
			out = append(out, telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID, logger))
		case config.ChannelStdout:
			out = append(out, NewStdoutNotifier(os.Stdout))
		default:
			return nil, fmt.Errorf("unknown delivery channel %q", ch)
		}
	}
	return out, nil
}

// deliver sends the report through every notifier. It fails only when no
// channel succeeded, so one broken channel does not cause repeats on the
// others next run.
func deliver(ctx context.Context, notifiers []Notifier, subject, body string, logger *slog.Logger) error {
	if len(notifiers) == 0 {
		return errors.New("no delivery channel configured")
	}

	var errs []error
	for _, n := range notifiers {
		err := n.Deliver(ctx, subject, body)
		metrics.RecordDelivery(n.Name(), err)
		if err != nil {
			logger.Error("delivery failed", "channel", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		logger.Info("digest delivered", "channel", n.Name())
	}

	if len(errs) == len(notifiers) {
		return errors.Join(errs...)
	}
	return nil
}
