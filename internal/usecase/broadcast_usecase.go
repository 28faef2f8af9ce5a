package usecase

import (
	"context"
	"fmt"

	"digi-shop/internal/repo/persistent"
	"digi-shop/pkg/logger"
	"digi-shop/pkg/queue"
)

// BroadcastUseCase fans an admin message out to every user through the
// durable queue. Delivery is best effort; a failed enqueue for one
// chat does not stop the rest.
type BroadcastUseCase interface {
	Broadcast(ctx context.Context, text string) (queued int, err error)
}

type broadcastUseCase struct {
	store  persistent.Store
	queue  *queue.Client
	logger *logger.Logger
}

func NewBroadcastUseCase(store persistent.Store, queueClient *queue.Client, log *logger.Logger) BroadcastUseCase {
	return &broadcastUseCase{
		store:  store,
		queue:  queueClient,
		logger: log,
	}
}

func (uc *broadcastUseCase) Broadcast(ctx context.Context, text string) (int, error) {
	if uc.queue == nil {
		return 0, fmt.Errorf("broadcast queue is not configured")
	}

	ids, err := uc.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recipients: %w", err)
	}

	queued := 0
	for _, id := range ids {
		task := queue.BroadcastTask{ChatID: id, Text: text, Priority: 1}
		if err := uc.queue.PublishBroadcast(task); err != nil {
			uc.logger.Error("Failed to queue broadcast for chat %d: %v", id, err)
			continue
		}
		queued++
	}

	uc.logger.Info("Queued broadcast for %d/%d users", queued, len(ids))
	return queued, nil
}
