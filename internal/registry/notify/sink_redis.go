package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// redisStreamMaxLen caps the stream so an idle consumer cannot grow it
// without bound. Trimming is approximate (XADD MAXLEN ~).
const redisStreamMaxLen = 100_000

// RedisSink appends events to a redis stream for external indexers.
type RedisSink struct {
	client *redis.Client
	stream string
}

func NewRedisSink(client *redis.Client, stream string) *RedisSink {
	return &RedisSink{client: client, stream: stream}
}

func (s *RedisSink) Append(ctx context.Context, event Event) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: redisStreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"sequence":       strconv.FormatUint(event.Sequence, 10),
			"type":           string(event.Type),
			"id":             event.ID.Hex(),
			"new_controller": event.NewController.Hex(),
			"timestamp":      event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
