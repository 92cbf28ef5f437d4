package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

const DefaultChannel = "fleetscore.ledger"

// wireChange is the pub/sub payload. Origin identifies the publishing process so a
// forwarder can skip changes its own notifier already handled.
type wireChange struct {
	Origin string            `json:"origin"`
	Change types.ScoreChange `json:"change"`
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	origin  string
}

// NewRedisClient dials addr and verifies it with a ping.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisBus publishes ledger changes on channel. The caller keeps ownership of rdb.
func NewRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) (Bus, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = DefaultChannel
	}
	origin := uuid.NewString()
	return &redisBus{
		log:     log.With("service", "RedisLedgerBus", "channel", channel, "origin", origin),
		rdb:     rdb,
		channel: channel,
		origin:  origin,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, change types.ScoreChange) error {
	raw, err := json.Marshal(wireChange{Origin: b.origin, Change: change})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder subscribes and returns once the subscription is confirmed. Changes
// published by this same bus are not forwarded.
func (b *redisBus) StartForwarder(ctx context.Context, onChange func(c types.ScoreChange)) error {
	if onChange == nil {
		return errors.New("onChange callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				change, remote, err := b.decode(m.Payload)
				if err != nil {
					b.log.Warn("Dropping malformed ledger change", "error", err)
					continue
				}
				if remote {
					onChange(change)
				}
			}
		}
	}()
	return nil
}

func (b *redisBus) decode(payload string) (types.ScoreChange, bool, error) {
	var w wireChange
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return types.ScoreChange{}, false, err
	}
	if w.Change.DriverID == "" {
		return types.ScoreChange{}, false, errors.New("change without driver_id")
	}
	return w.Change, w.Origin != b.origin, nil
}

func (b *redisBus) Close() error {
	return nil
}
