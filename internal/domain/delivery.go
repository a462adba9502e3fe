package domain

import (
	"fmt"
	"strings"
	"time"
)

// Complete moves an in-transit delivery to completed. Stock effects are applied by the caller
// inside the same transaction.
func (d *Delivery) Complete(at time.Time) error {
	if d.Status != DeliveryStatusInTransit {
		return fmt.Errorf("%w: delivery %s is %s", ErrInvalidTransition, d.ID, d.Status)
	}
	completedAt := at.UTC()
	d.Status = DeliveryStatusCompleted
	d.CompletedAt = &completedAt
	return nil
}

// Cancel moves an in-transit delivery to cancelled, releasing its reservation.
func (d *Delivery) Cancel(at time.Time, reason string) error {
	if d.Status != DeliveryStatusInTransit {
		return fmt.Errorf("%w: delivery %s is %s", ErrInvalidTransition, d.ID, d.Status)
	}
	cancelledAt := at.UTC()
	d.Status = DeliveryStatusCancelled
	d.CancelledAt = &cancelledAt
	d.CancellationReason = strings.TrimSpace(reason)
	return nil
}

// Reserves reports whether the delivery counts against the purchase's pending quantities.
func (d Delivery) Reserves() bool {
	return d.Status == DeliveryStatusInTransit || d.Status == DeliveryStatusCompleted
}
