package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
)

// NormalizeCardNumber strips spaces and dashes and checks the result is 13 to
// 19 digits long.
func NormalizeCardNumber(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == ' ' || r == '-':
			continue
		case r < '0' || r > '9':
			return "", ErrInvalidCard
		}
		b.WriteRune(r)
	}
	n := b.String()
	if len(n) < 13 || len(n) > 19 {
		return "", ErrInvalidCard
	}
	return n, nil
}

// simulateProcessing waits for the configured payment delay or until ctx ends.
func simulateProcessing(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classify maps a submission failure onto the workflow error taxonomy.
func classify(err error, online bool) error {
	switch {
	case errors.Is(err, backend.ErrAuthRequired):
		return fmt.Errorf("%w: %w", ErrAuthRequired, err)
	case errors.Is(err, backend.ErrRejected):
		if online {
			return fmt.Errorf("%w: %w", ErrPaymentDeclined, err)
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		// unavailable backend, open circuit, timeouts and cancellation
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
}
