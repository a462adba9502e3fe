// Package jobs defines the background tasks processed by the worker.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	QueueDefault = "default"
	// TaskTypeLowStock signals that a product dropped under its minimum stock.
	TaskTypeLowStock = "stock:low"

	// lowStockUniqueFor suppresses repeated alerts for the same product. The task id is kept
	// for this long after the alert was processed.
	lowStockUniqueFor = 15 * time.Minute
)

type LowStockPayload struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	Stock      decimal.Decimal `json:"stock"`
	MinStock   decimal.Decimal `json:"minStock"`
	DetectedAt time.Time       `json:"detectedAt"`
}

func NewLowStockTask(payload LowStockPayload, queue string) (*asynq.Task, error) {
	if payload.ProductID == "" {
		return nil, errors.New("jobs: low stock payload requires a product id")
	}
	if queue == "" {
		queue = QueueDefault
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStock, body,
		asynq.Queue(queue),
		asynq.MaxRetry(3),
		asynq.TaskID(LowStockTaskID(payload.ProductID)),
		asynq.Retention(lowStockUniqueFor),
	), nil
}

// LowStockTaskID keys alerts on the product alone; stock level and detection time vary
// between sales.
func LowStockTaskID(productID string) string {
	return TaskTypeLowStock + ":" + productID
}

// LowStockHandler processes TaskTypeLowStock tasks.
type LowStockHandler struct {
	logger zerolog.Logger
}

func NewLowStockHandler(logger zerolog.Logger) *LowStockHandler {
	return &LowStockHandler{logger: logger}
}

func (h *LowStockHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error().Err(err).Str("task", t.Type()).Msg("discarding malformed task")
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypeLowStock, err, asynq.SkipRetry)
	}
	if payload.ProductID == "" {
		return fmt.Errorf("%s payload without product id: %w", TaskTypeLowStock, asynq.SkipRetry)
	}
	h.logger.Warn().
		Str("productId", payload.ProductID).
		Str("name", payload.Name).
		Str("stock", payload.Stock.String()).
		Str("minStock", payload.MinStock.String()).
		Str("unit", payload.Unit).
		Time("detectedAt", payload.DetectedAt).
		Msg("product below minimum stock")
	return nil
}
