package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CollectionProducts   = "products"
	CollectionPurchases  = "purchases"
	CollectionExpenses   = "expenses"
	CollectionActivities = "activities"
)

const (
	PurchaseStatusPending          = "pending"
	PurchaseStatusApproved         = "approved"
	PurchaseStatusPartialDelivered = "partial_delivered"
	PurchaseStatusCompleted        = "completed"
	PurchaseStatusCancelled        = "cancelled"
)

const (
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusCompleted = "completed"
	DeliveryStatusCancelled = "cancelled"
)

const (
	ExpenseTypeProduct = "product"
	ExpenseTypeMisc    = "misc"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Cost      decimal.Decimal `json:"cost"`
	Stock     decimal.Decimal `json:"stock"`
	MinStock  decimal.Decimal `json:"minStock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// BelowMinimum reports whether on-hand stock dropped under the configured floor.
// A zero minStock disables the check.
func (p Product) BelowMinimum() bool {
	return p.MinStock.IsPositive() && p.Stock.LessThan(p.MinStock)
}

type ProductCreateRequest struct {
	Name     string          `json:"name" validate:"required"`
	Category string          `json:"category"`
	Unit     string          `json:"unit" validate:"required"`
	Cost     decimal.Decimal `json:"cost"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"minStock"`
}

type LineItem struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
}

// Key identifies the line item when matching delivery products. Documents written
// before line items carried their own id fall back to the item name.
func (li LineItem) Key() string {
	if li.ID != "" {
		return li.ID
	}
	return li.Name
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitCost)
}

type PurchaseOrder struct {
	ID                 string          `json:"id"`
	PurchaseNumber     string          `json:"purchaseNumber"`
	Supplier           string          `json:"supplier"`
	PurchaseDate       time.Time       `json:"purchaseDate"`
	Status             string          `json:"status"`
	LineItems          []LineItem      `json:"lineItems"`
	Freight            decimal.Decimal `json:"freight"`
	Taxes              decimal.Decimal `json:"taxes"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Deliveries         []Delivery      `json:"deliveries"`
	TotalDelivered     decimal.Decimal `json:"totalDelivered"`
	TotalPending       decimal.Decimal `json:"totalPending"`
	TotalReceived      decimal.Decimal `json:"totalReceived"`
	Notes              string          `json:"notes,omitempty"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	ApprovedAt         *time.Time      `json:"approvedAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
}

// FindDelivery returns a pointer into p.Deliveries so transitions mutate the purchase in place.
func (p *PurchaseOrder) FindDelivery(deliveryID string) (*Delivery, error) {
	for i := range p.Deliveries {
		if p.Deliveries[i].ID == deliveryID {
			return &p.Deliveries[i], nil
		}
	}
	return nil, ErrDeliveryNotFound
}

func (p PurchaseOrder) IsTerminal() bool {
	return p.Status == PurchaseStatusCompleted || p.Status == PurchaseStatusCancelled
}

type LineItemRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Category  string          `json:"category"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
}

type PurchaseCreateRequest struct {
	PurchaseNumber string            `json:"purchaseNumber"`
	Supplier       string            `json:"supplier" validate:"required"`
	PurchaseDate   string            `json:"purchaseDate"`
	LineItems      []LineItemRequest `json:"lineItems" validate:"required,min=1,dive"`
	Freight        decimal.Decimal   `json:"freight"`
	Taxes          decimal.Decimal   `json:"taxes"`
	Notes          string            `json:"notes"`
}

type PurchaseCancelRequest struct {
	Reason string `json:"reason"`
}

type PurchaseResponse struct {
	Purchase PurchaseOrder `json:"purchase"`
}

type PurchaseListResponse struct {
	Purchases []PurchaseOrder `json:"purchases"`
}

type DeliveryProduct struct {
	LineItemID string          `json:"lineItemId,omitempty"`
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	Unit       string          `json:"unit"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unitCost"`
}

// Key mirrors LineItem.Key for matching against the owning purchase.
func (dp DeliveryProduct) Key() string {
	if dp.LineItemID != "" {
		return dp.LineItemID
	}
	return dp.Name
}

type Delivery struct {
	ID                 string            `json:"id"`
	PurchaseID         string            `json:"purchaseId"`
	WarehouseID        string            `json:"warehouseId"`
	DeliveryDate       time.Time         `json:"deliveryDate"`
	Products           []DeliveryProduct `json:"products"`
	Freight            decimal.Decimal   `json:"freight"`
	TotalQuantity      decimal.Decimal   `json:"totalQuantity"`
	TotalProductValue  decimal.Decimal   `json:"totalProductValue"`
	TotalWithFreight   decimal.Decimal   `json:"totalWithFreight"`
	Notes              string            `json:"notes,omitempty"`
	Status             string            `json:"status"`
	CreatedAt          time.Time         `json:"createdAt"`
	CompletedAt        *time.Time        `json:"completedAt,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CancellationReason string            `json:"cancellationReason,omitempty"`
}

type DeliveryProductRequest struct {
	LineItemID string          `json:"lineItemId"`
	Quantity   decimal.Decimal `json:"quantity"`
}

type DeliveryCreateRequest struct {
	WarehouseID  string                   `json:"warehouseId"`
	DeliveryDate string                   `json:"deliveryDate"`
	Products     []DeliveryProductRequest `json:"products"`
	Freight      string                   `json:"freight"`
	Notes        string                   `json:"notes"`
}

type DeliveryCancelRequest struct {
	Reason string `json:"reason"`
}

type DeliveryCreateResponse struct {
	DeliveryID string        `json:"deliveryId"`
	Purchase   PurchaseOrder `json:"purchase"`
}

// DeliverableLineItem is one row offered to the caller when composing a delivery.
type DeliverableLineItem struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	OriginalQty  decimal.Decimal `json:"originalQty"`
	DeliveredQty decimal.Decimal `json:"deliveredQty"`
	PendingQty   decimal.Decimal `json:"pendingQty"`
}

type DeliverableListResponse struct {
	PurchaseID string                `json:"purchaseId"`
	Items      []DeliverableLineItem `json:"items"`
}

type Expense struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Description  string          `json:"description"`
	Category     string          `json:"category,omitempty"`
	Date         time.Time       `json:"date"`
	ProductID    string          `json:"productId,omitempty"`
	ProductName  string          `json:"productName,omitempty"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type ProductSaleExpenseRequest struct {
	ProductID    string          `json:"productId" validate:"required"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Date         string          `json:"date"`
	Notes        string          `json:"notes"`
}

type MiscExpenseRequest struct {
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Notes       string          `json:"notes"`
}

// ExpenseCreateRequest is the wire shape accepted by the expenses endpoint; Type selects
// which of the typed requests it is converted to.
type ExpenseCreateRequest struct {
	Type         string          `json:"type"`
	ProductID    string          `json:"productId"`
	QuantitySold decimal.Decimal `json:"quantitySold"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	Date         string          `json:"date"`
	Notes        string          `json:"notes"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type ExpenseListResponse struct {
	Expenses []Expense `json:"expenses"`
}

type Activity struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"createdAt"`
}
