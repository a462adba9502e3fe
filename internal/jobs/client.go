package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits tasks to the queue.
type Client struct {
	client taskEnqueuer
	queue  string
}

func NewClient(redisOpts asynq.RedisClientOpt, queue string) *Client {
	return newClient(asynq.NewClient(redisOpts), queue)
}

func newClient(enq taskEnqueuer, queue string) *Client {
	if queue == "" {
		queue = QueueDefault
	}
	return &Client{client: enq, queue: queue}
}

// EnqueueLowStock schedules a low-stock alert. An alert already queued or recently processed
// for the same product is not an error.
func (c *Client) EnqueueLowStock(ctx context.Context, payload LowStockPayload) error {
	task, err := NewLowStockTask(payload, c.queue)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
