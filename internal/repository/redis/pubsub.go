package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type SlotsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSlotsPubSub(rdb *redis.Client) *SlotsPubSub {
	return &SlotsPubSub{
		rdb:     rdb,
		channel: ChannelSlotsChanged(),
	}
}

// SlotsChanged is broadcast whenever slot statuses move.
type SlotsChanged struct {
	Reason string `json:"reason"`
	Slots  []int  `json:"slots"`
	Status string `json:"status"`
	TsUnix int64  `json:"ts_unix"`
}

func (p *SlotsPubSub) PublishSlotsChanged(ctx context.Context, reason, status string, slots []int) error {
	if p == nil || len(slots) == 0 {
		return nil
	}

	msg := SlotsChanged{
		Reason: reason,
		Slots:  slots,
		Status: status,
		TsUnix: time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks, calling handler for every well-formed message until ctx
// is done or the subscription closes.
func (p *SlotsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg SlotsChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg SlotsChanged
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && len(msg.Slots) > 0 {
				handler(ctx, msg)
			}
		}
	}
}
