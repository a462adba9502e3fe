// Package cache keeps computed deliverable line items per purchase.
package cache

import (
	"context"
	"time"

	"github.com/Noble200/nose-sub001/internal/domain"
)

type DeliverableCache interface {
	Get(ctx context.Context, purchaseID string) ([]domain.DeliverableLineItem, bool, error)
	Set(ctx context.Context, purchaseID string, items []domain.DeliverableLineItem, ttl time.Duration) error
	Invalidate(ctx context.Context, purchaseID string) error
}

type NoopDeliverableCache struct{}

func (NoopDeliverableCache) Get(_ context.Context, _ string) ([]domain.DeliverableLineItem, bool, error) {
	return nil, false, nil
}

func (NoopDeliverableCache) Set(_ context.Context, _ string, _ []domain.DeliverableLineItem, _ time.Duration) error {
	return nil
}

func (NoopDeliverableCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
