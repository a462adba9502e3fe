package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Noble200/nose-sub001/internal/domain"
)

func TestRecomputeLifecycle(t *testing.T) {
	p := approvedPurchase()
	Recompute(&p)
	assert.Equal(t, domain.PurchaseStatusApproved, p.Status)
	assert.True(t, p.TotalPending.Equal(d("150")))
	assert.True(t, p.TotalAmount.Equal(d("415")))

	// Partial shipment in transit.
	p.Deliveries = append(p.Deliveries, delivery("del-1", domain.DeliveryStatusInTransit, map[string]string{"li-a": "100"}))
	Recompute(&p)
	assert.Equal(t, domain.PurchaseStatusPartialDelivered, p.Status)
	assert.True(t, p.TotalDelivered.Equal(d("100")))
	assert.True(t, p.TotalReceived.IsZero())

	// Everything shipped but one truck still on the road.
	p.Deliveries = append(p.Deliveries, delivery("del-2", domain.DeliveryStatusInTransit, map[string]string{"li-b": "50"}))
	require.NoError(t, p.Deliveries[0].Complete(time.Now()))
	Recompute(&p)
	assert.Equal(t, domain.PurchaseStatusPartialDelivered, p.Status)
	assert.True(t, p.TotalPending.IsZero())
	assert.True(t, p.TotalReceived.Equal(d("100")))

	require.NoError(t, p.Deliveries[1].Complete(time.Now()))
	Recompute(&p)
	assert.Equal(t, domain.PurchaseStatusCompleted, p.Status)
	assert.True(t, p.TotalReceived.Equal(d("150")))
}

func TestRecomputeAfterCancellationReturnsToApproved(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusInTransit, map[string]string{"li-a": "40"}),
	}
	Recompute(&p)
	require.Equal(t, domain.PurchaseStatusPartialDelivered, p.Status)

	require.NoError(t, p.Deliveries[0].Cancel(time.Now(), ""))
	Recompute(&p)
	assert.Equal(t, domain.PurchaseStatusApproved, p.Status)
	assert.True(t, p.TotalDelivered.IsZero())
}

func TestRecomputeIsIdempotent(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusCompleted, map[string]string{"li-a": "70"}),
		delivery("del-2", domain.DeliveryStatusInTransit, map[string]string{"li-b": "10"}),
	}
	Recompute(&p)
	first := p
	Recompute(&p)
	assert.Equal(t, first.Status, p.Status)
	assert.True(t, first.TotalDelivered.Equal(p.TotalDelivered))
	assert.True(t, first.TotalPending.Equal(p.TotalPending))
	assert.True(t, first.TotalReceived.Equal(p.TotalReceived))
}

func TestDeliveredPlusPendingCoversOriginal(t *testing.T) {
	p := approvedPurchase()
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusCompleted, map[string]string{"li-a": "30", "li-b": "60"}),
		delivery("del-2", domain.DeliveryStatusInTransit, map[string]string{"li-a": "15"}),
		delivery("del-3", domain.DeliveryStatusCancelled, map[string]string{"li-a": "55"}),
	}
	for _, lp := range Progress(p) {
		if lp.Delivered.LessThanOrEqual(lp.Original) {
			assert.True(t, lp.Delivered.Add(lp.Pending).Equal(lp.Original), lp.Key)
		} else {
			assert.True(t, lp.Pending.IsZero(), lp.Key)
		}
	}
}

func TestDeriveStatusKeepsExplicitStates(t *testing.T) {
	p := approvedPurchase()
	p.Status = domain.PurchaseStatusPending
	assert.Equal(t, domain.PurchaseStatusPending, DeriveStatus(p))

	p.Status = domain.PurchaseStatusCancelled
	p.Deliveries = []domain.Delivery{
		delivery("del-1", domain.DeliveryStatusCompleted, map[string]string{"li-a": "100", "li-b": "50"}),
	}
	assert.Equal(t, domain.PurchaseStatusCancelled, DeriveStatus(p))
}

func TestAcceptsDeliveries(t *testing.T) {
	for status, want := range map[string]bool{
		domain.PurchaseStatusPending:          false,
		domain.PurchaseStatusApproved:         true,
		domain.PurchaseStatusPartialDelivered: true,
		domain.PurchaseStatusCompleted:        false,
		domain.PurchaseStatusCancelled:        false,
	} {
		assert.Equal(t, want, AcceptsDeliveries(domain.PurchaseOrder{Status: status}), status)
	}
}
