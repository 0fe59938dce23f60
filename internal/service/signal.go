package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/deedledger/deedledger"
)

// EventChannel is the redis channel all ledger notifications go out on.
const EventChannel = "deedledger:events"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event deedledger.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, EventChannel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Realtime forwards published events to output until ctx is cancelled or the
// request channel closes. Messages on request replace the set of event types
// the subscriber wants; an empty set means everything.
func (s *SignalService) Realtime(ctx context.Context, request <-chan []string, output chan<- deedledger.Event) {
	pubsub := s.rdb.Subscribe(ctx, EventChannel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var filter map[string]struct{}

	for {
		select {
		case <-ctx.Done():
			return
		case types, ok := <-request:
			if !ok {
				return
			}
			if len(types) == 0 {
				filter = nil
				continue
			}
			filter = make(map[string]struct{}, len(types))
			for _, t := range types {
				filter[t] = struct{}{}
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event deedledger.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(
					ctx, "failed to decode event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}

			if filter != nil {
				if _, want := filter[event.Type]; !want {
					continue
				}
			}

			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
