package notification

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/transfers-api/cmd/api/account"
)

const StreamName = "account.notifications"

// StreamNotifier appends notifications to a Redis stream.
type StreamNotifier struct {
	client redis.Cmdable
	stream string
}

func NewStreamNotifier(client redis.Cmdable) *StreamNotifier {
	return &StreamNotifier{client: client, stream: StreamName}
}

func (s *StreamNotifier) Notify(ctx context.Context, acc account.Account, message string) error {
	body, err := json.Marshal(newNotification(acc, message))
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"account":      acc.ID,
			"notification": body,
		},
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrap(err, "append notification to stream")
	}

	return nil
}
