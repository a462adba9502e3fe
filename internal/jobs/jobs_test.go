package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks  []*asynq.Task
	err    error
	closed bool
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error {
	f.closed = true
	return nil
}

func lowStock() LowStockPayload {
	return LowStockPayload{
		ProductID:  "prod-urea",
		Name:       "Urea 46%",
		Unit:       "kg",
		Stock:      decimal.NewFromInt(80),
		MinStock:   decimal.NewFromInt(200),
		DetectedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewLowStockTaskRequiresProduct(t *testing.T) {
	_, err := NewLowStockTask(LowStockPayload{}, "")
	assert.Error(t, err)
}

func TestEnqueueLowStock(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := newClient(fake, "alerts")

	require.NoError(t, c.EnqueueLowStock(context.Background(), lowStock()))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskTypeLowStock, fake.tasks[0].Type())

	var got LowStockPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &got))
	assert.Equal(t, "prod-urea", got.ProductID)

	require.NoError(t, c.Close())
	assert.True(t, fake.closed)
}

func TestEnqueueLowStockConflictIsNotAnError(t *testing.T) {
	c := newClient(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, "")
	assert.NoError(t, c.EnqueueLowStock(context.Background(), lowStock()))

	boom := errors.New("redis down")
	c = newClient(&fakeEnqueuer{err: boom}, "")
	assert.ErrorIs(t, c.EnqueueLowStock(context.Background(), lowStock()), boom)
}

func TestEnqueueLowStockOncePerProduct(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()}, "alerts")
	t.Cleanup(func() { _ = c.Close() })

	first := lowStock()
	second := lowStock()
	second.Stock = decimal.NewFromInt(35)
	second.DetectedAt = first.DetectedAt.Add(3 * time.Minute)

	require.NoError(t, c.EnqueueLowStock(context.Background(), first))
	require.NoError(t, c.EnqueueLowStock(context.Background(), second))

	pending, err := mr.List("asynq:{alerts}:pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, LowStockTaskID("prod-urea"), pending[0])

	other := lowStock()
	other.ProductID = "prod-diesel"
	require.NoError(t, c.EnqueueLowStock(context.Background(), other))
	pending, err = mr.List("asynq:{alerts}:pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestLowStockHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewLowStockHandler(zerolog.New(&buf))

	body, err := json.Marshal(lowStock())
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), asynq.NewTask(TaskTypeLowStock, body)))
	assert.Contains(t, buf.String(), "prod-urea")
	assert.Contains(t, buf.String(), "product below minimum stock")

	err = h.Handle(context.Background(), asynq.NewTask(TaskTypeLowStock, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.Handle(context.Background(), asynq.NewTask(TaskTypeLowStock, []byte(`{"name":"x"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestUnconfiguredWorkerRun(t *testing.T) {
	var w *Worker
	assert.Error(t, w.Run(context.Background()))
}
