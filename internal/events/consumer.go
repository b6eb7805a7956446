package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// MirrorCleaner consumes order.placed events and drops the mirrored cart of
// the ordering user, so a later fallback load cannot restore a cart that was
// already turned into an order by another storefront instance.
type MirrorCleaner struct {
	reader messageReader
	mirror cache.CartCache
	log    *zap.Logger
}

func NewMirrorCleaner(mirror cache.CartCache, log *zap.Logger, topic string, brokers ...string) *MirrorCleaner {
	if topic == "" {
		topic = DefaultTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "storefront-mirror-cleaner",
		MaxBytes: 10e6, // 10MB
	})
	return &MirrorCleaner{reader: reader, mirror: mirror, log: log}
}

func (m *MirrorCleaner) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m.handleNext(ctx)
	}
}

func (m *MirrorCleaner) Close() error {
	return m.reader.Close()
}

func (m *MirrorCleaner) handleNext(ctx context.Context) {
	msg, err := m.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn("error reading event", zap.Error(err))
		}
		return
	}
	if header(msg, "event_type") != TypeOrderPlaced {
		return
	}

	var ev struct {
		Payload OrderPlaced `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		m.log.Warn("error parsing event", zap.Error(err))
		return
	}
	if ev.Payload.UserID == "" {
		m.log.Warn("order.placed event without user_id", zap.ByteString("key", msg.Key))
		return
	}

	if err := m.mirror.Delete(ctx, ev.Payload.UserID); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		m.log.Warn("failed to drop mirrored cart", zap.String("user_id", ev.Payload.UserID), zap.Error(err))
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
