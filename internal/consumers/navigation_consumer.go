package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"pagetrust/internal/autoscan"
	"pagetrust/internal/clients/kafka_client"
	"pagetrust/internal/models"
)

// StartNavigationConsumer processes page-navigation events until ctx is
// canceled. Unreadable events are committed and dropped; re-delivering
// them would never help.
func StartNavigationConsumer(ctx context.Context, consumer *kafka.Consumer, scheduler *autoscan.Scheduler) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[NavigationConsumer] Listening for navigation events...")

	for {
		select {
		case <-ctx.Done():
			slog.Warn("[NavigationConsumer] Consumer shutting down...")
			return
		default:
			msg, err := iterator.Next()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				slog.Error("[NavigationConsumer] Failed to read message",
					slog.String("error", err.Error()))
				continue
			}

			var event models.NavigationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				slog.Warn("[NavigationConsumer] Dropping malformed navigation event",
					slog.String("error", err.Error()))
				committer.Commit(msg)
				continue
			}

			scheduler.HandleNavigation(ctx, event)

			if err := committer.Commit(msg); err != nil {
				slog.Warn("[NavigationConsumer] Failed to commit offset",
					slog.String("error", err.Error()))
			}
		}
	}
}
