package game

import (
	"context"
	"errors"
	"log"
)

// Notifier publishes settled wagers. Failures never affect the bet.
type Notifier interface {
	Notify(ctx context.Context, outcome WagerOutcome) error
}

// Notifiers fans an outcome out to every sink and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, outcome WagerOutcome) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes each outcome to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, o WagerOutcome) error {
	status := "lost"
	if o.Won {
		status = "won"
	}
	log.Printf("[WAGER] %s %s bet %s SOL, result %d, %s, payout %s SOL",
		o.Player, o.GameType, FormatSOL(o.BetAmount), o.Result, status, FormatSOL(o.Payout))
	return nil
}
