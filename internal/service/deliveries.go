package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/reconcile"
	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/xid"
)

// GetDeliverableLineItems lists the line items of a purchase that still have quantity to
// deliver. Purchases that do not accept deliveries yield an empty list.
func (s *Service) GetDeliverableLineItems(ctx context.Context, purchaseID string) ([]domain.DeliverableLineItem, error) {
	if items, ok, err := s.cache.Get(ctx, purchaseID); err != nil {
		s.logger.Warn().Err(err).Str("purchaseId", purchaseID).Msg("deliverables cache read failed")
	} else if ok {
		return items, nil
	}

	// Joined callers share the load, so it must not die with the first caller's context.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(purchaseID, func() (interface{}, error) {
		gen := s.generation(purchaseID)
		purchase, err := s.GetPurchase(loadCtx, purchaseID)
		if err != nil {
			return nil, err
		}
		items := []domain.DeliverableLineItem{}
		if reconcile.AcceptsDeliveries(purchase) {
			items = reconcile.Deliverable(purchase)
		}
		s.fillDeliverables(loadCtx, purchaseID, gen, items)
		return items, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.DeliverableLineItem), nil
	}
}

// fillDeliverables caches items read at generation gen. A fill that lost a race with an
// invalidation is skipped, or removed again when the invalidation landed after the check.
func (s *Service) fillDeliverables(ctx context.Context, purchaseID string, gen uint64, items []domain.DeliverableLineItem) {
	if s.generation(purchaseID) != gen {
		return
	}
	if err := s.cache.Set(ctx, purchaseID, items, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("purchaseId", purchaseID).Msg("deliverables cache write failed")
		return
	}
	if s.generation(purchaseID) != gen {
		if err := s.cache.Invalidate(ctx, purchaseID); err != nil {
			s.logger.Warn().Err(err).Str("purchaseId", purchaseID).Msg("failed to invalidate deliverables cache")
		}
	}
}

// CreateDelivery records a new in-transit delivery against an approved purchase. The
// delivery reserves its quantities; stock is only incremented when it completes.
func (s *Service) CreateDelivery(ctx context.Context, purchaseID string, req domain.DeliveryCreateRequest) (domain.DeliveryCreateResponse, error) {
	if err := reconcile.CheckRequest(req); err != nil {
		return domain.DeliveryCreateResponse{}, err
	}
	if _, err := reconcile.ParseDate(req.DeliveryDate); err != nil {
		return domain.DeliveryCreateResponse{}, err
	}

	var resp domain.DeliveryCreateResponse
	var created domain.Delivery
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		purchase, err := loadPurchase(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if !reconcile.AcceptsDeliveries(purchase) {
			return fmt.Errorf("%w: purchase %s is %s", domain.ErrPurchaseNotDeliverable, purchaseID, purchase.Status)
		}
		draft, err := reconcile.ValidateDeliveryRequest(purchase, req, s.policy)
		if err != nil {
			return err
		}

		now := s.now()
		delivery := domain.Delivery{
			ID:                xid.New("del"),
			PurchaseID:        purchaseID,
			WarehouseID:       draft.WarehouseID,
			DeliveryDate:      draft.DeliveryDate,
			Products:          draft.Products,
			Freight:           draft.Freight,
			TotalQuantity:     draft.TotalQuantity,
			TotalProductValue: draft.TotalProductValue,
			TotalWithFreight:  draft.TotalWithFreight,
			Notes:             draft.Notes,
			Status:            domain.DeliveryStatusInTransit,
			CreatedAt:         now,
		}
		purchase.Deliveries = append(purchase.Deliveries, delivery)
		purchase.UpdatedAt = now
		reconcile.Recompute(&purchase)
		if err := tx.Set(ctx, domain.CollectionPurchases, purchaseID, purchase); err != nil {
			return err
		}
		created = delivery
		resp = domain.DeliveryCreateResponse{DeliveryID: delivery.ID, Purchase: purchase}
		return nil
	})
	if err != nil {
		return domain.DeliveryCreateResponse{}, err
	}

	s.invalidateDeliverables(ctx, purchaseID)
	s.logActivity(ctx, "delivery_create", "delivery", created.ID,
		fmt.Sprintf("purchase=%s,warehouse=%s,quantity=%s", purchaseID, created.WarehouseID, created.TotalQuantity))
	return resp, nil
}

// CompleteDelivery moves an in-transit delivery to completed and adds its quantities to
// product stock in the same transaction.
func (s *Service) CompleteDelivery(ctx context.Context, purchaseID string, deliveryID string) (domain.PurchaseOrder, error) {
	var completed domain.PurchaseOrder
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		purchase, err := loadPurchase(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		delivery, err := purchase.FindDelivery(deliveryID)
		if err != nil {
			return fmt.Errorf("%w: %s", err, deliveryID)
		}
		now := s.now()
		if err := delivery.Complete(now); err != nil {
			return err
		}
		for _, p := range delivery.Products {
			if _, err := s.ledger.Increment(ctx, tx, p.ProductID, p.Quantity); err != nil {
				return fmt.Errorf("delivery %s product %q: %w", deliveryID, p.Name, err)
			}
		}
		purchase.UpdatedAt = now
		reconcile.Recompute(&purchase)
		completed = purchase
		return tx.Set(ctx, domain.CollectionPurchases, purchaseID, purchase)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.invalidateDeliverables(ctx, purchaseID)
	s.logActivity(ctx, "delivery_complete", "delivery", deliveryID, fmt.Sprintf("purchase=%s,status=%s", purchaseID, completed.Status))
	return completed, nil
}

// CancelDelivery cancels an in-transit delivery, releasing its reserved quantities. Stock
// is untouched since nothing was added yet.
func (s *Service) CancelDelivery(ctx context.Context, purchaseID string, deliveryID string, reason string) (domain.PurchaseOrder, error) {
	reason = strings.TrimSpace(reason)
	var updated domain.PurchaseOrder
	err := s.docs.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		purchase, err := loadPurchase(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		delivery, err := purchase.FindDelivery(deliveryID)
		if err != nil {
			return fmt.Errorf("%w: %s", err, deliveryID)
		}
		now := s.now()
		if err := delivery.Cancel(now, reason); err != nil {
			return err
		}
		purchase.UpdatedAt = now
		reconcile.Recompute(&purchase)
		updated = purchase
		return tx.Set(ctx, domain.CollectionPurchases, purchaseID, purchase)
	})
	if err != nil {
		return domain.PurchaseOrder{}, err
	}
	s.invalidateDeliverables(ctx, purchaseID)
	s.logActivity(ctx, "delivery_cancel", "delivery", deliveryID, fmt.Sprintf("purchase=%s,reason=%s", purchaseID, reason))
	return updated, nil
}
