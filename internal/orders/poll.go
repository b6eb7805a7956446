package orders

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = 30 * time.Second

// Subscription is a running poll loop. The owner must Stop it when the view
// it feeds goes away.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Poll refreshes immediately and then every interval until ctx is cancelled
// or the subscription is stopped. Failed refreshes are logged and retried on
// the next tick.
func (v *ViewModel) Poll(ctx context.Context, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		v.pollOnce(ctx)
		for {
			select {
			case <-ticker.C:
				v.pollOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub
}

func (v *ViewModel) pollOnce(ctx context.Context) {
	if err := v.Refresh(ctx); err != nil && ctx.Err() == nil {
		v.log.Warn("order poll failed", zap.String("scope", v.scope.String()), zap.Error(err))
	}
}
