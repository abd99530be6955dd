package billing

import (
	"context"

	"github.com/google/uuid"
)

// BillRepository persists the bill root and its line items. GetByID loads
// the full aggregate including payments and claims. InTx runs fn in a single
// transaction; repository calls made through the context fn receives share it.
type BillRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByBillNumber(ctx context.Context, billNumber string) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Bill, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Bill, int, error)

	AddItem(ctx context.Context, it *BillItem) error
	UpdateItem(ctx context.Context, it *BillItem) error
	RemoveItem(ctx context.Context, itemID uuid.UUID) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error)
}

type InsuranceClaimRepository interface {
	Create(ctx context.Context, c *InsuranceClaim) error
	GetByID(ctx context.Context, id uuid.UUID) (*InsuranceClaim, error)
	Update(ctx context.Context, c *InsuranceClaim) error
	ListByBill(ctx context.Context, billID uuid.UUID) ([]*InsuranceClaim, error)
}
