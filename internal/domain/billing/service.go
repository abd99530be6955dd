package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
)

type Service struct {
	bills      BillRepository
	payments   PaymentRepository
	claims     InsuranceClaimRepository
	dispatcher events.Dispatcher
}

func NewService(bills BillRepository, payments PaymentRepository, claims InsuranceClaimRepository, dispatcher events.Dispatcher) *Service {
	return &Service{bills: bills, payments: payments, claims: claims, dispatcher: dispatcher}
}

func (s *Service) CreateBill(ctx context.Context, patientID uuid.UUID, appointmentID *uuid.UUID, dueDate *time.Time, taxRate float64) (*Bill, error) {
	b, err := NewBill(patientID, appointmentID, dueDate, taxRate)
	if err != nil {
		return nil, err
	}
	if err := s.bills.Create(ctx, b); err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, b.TakeEvents())
	return b, nil
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.bills.GetByID(ctx, id)
}

func (s *Service) GetBillByNumber(ctx context.Context, billNumber string) (*Bill, error) {
	if billNumber == "" {
		return nil, domainerr.InvalidArgumentf("bill_number is required")
	}
	return s.bills.GetByBillNumber(ctx, billNumber)
}

func (s *Service) ListBills(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return s.bills.List(ctx, limit, offset)
}

func (s *Service) ListBillsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListBillsByStatus(ctx context.Context, status string, limit, offset int) ([]*Bill, int, error) {
	return s.bills.ListByStatus(ctx, status, limit, offset)
}

// mutate loads the bill, applies the change and persists the root, all in
// one transaction so row-level writes made by fn commit or roll back with
// the recomputed bill totals. fn must use the context it receives for any
// repository call. Events recorded during the change are dispatched only
// after the transaction commits.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, b *Bill) error) (*Bill, error) {
	var b *Bill
	err := s.bills.InTx(ctx, func(txCtx context.Context) error {
		var err error
		b, err = s.bills.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := fn(txCtx, b); err != nil {
			return err
		}
		return s.bills.Update(txCtx, b)
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, b.TakeEvents())
	return b, nil
}

func (s *Service) AddItem(ctx context.Context, billID uuid.UUID, description string, serviceCode *string, quantity int, unitPrice float64) (*BillItem, error) {
	var item *BillItem
	_, err := s.mutate(ctx, billID, func(txCtx context.Context, b *Bill) error {
		it, err := b.AddItem(description, serviceCode, quantity, unitPrice)
		if err != nil {
			return err
		}
		item = it
		return s.bills.AddItem(txCtx, it)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) UpdateItem(ctx context.Context, billID, itemID uuid.UUID, quantity int, unitPrice float64) (*BillItem, error) {
	var item *BillItem
	_, err := s.mutate(ctx, billID, func(txCtx context.Context, b *Bill) error {
		it, err := b.UpdateItem(itemID, quantity, unitPrice)
		if err != nil {
			return err
		}
		item = it
		return s.bills.UpdateItem(txCtx, it)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) RemoveItem(ctx context.Context, billID, itemID uuid.UUID) (*Bill, error) {
	return s.mutate(ctx, billID, func(txCtx context.Context, b *Bill) error {
		if err := b.RemoveItem(itemID); err != nil {
			return err
		}
		return s.bills.RemoveItem(txCtx, itemID)
	})
}

func (s *Service) SetDueDate(ctx context.Context, billID uuid.UUID, date time.Time) (*Bill, error) {
	return s.mutate(ctx, billID, func(_ context.Context, b *Bill) error { return b.SetDueDate(date) })
}

func (s *Service) SetTaxRate(ctx context.Context, billID uuid.UUID, rate float64) (*Bill, error) {
	return s.mutate(ctx, billID, func(_ context.Context, b *Bill) error { return b.SetTaxRate(rate) })
}

func (s *Service) ApplyDiscount(ctx context.Context, billID uuid.UUID, amount float64, reason *string) (*Bill, error) {
	return s.mutate(ctx, billID, func(_ context.Context, b *Bill) error { return b.ApplyDiscount(amount, reason) })
}

func (s *Service) FinalizeBill(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	return s.mutate(ctx, billID, func(_ context.Context, b *Bill) error { return b.FinalizeBill() })
}

// AddPayment records a payment against a bill and counts it toward the
// balance immediately. The payment itself starts out pending and is settled
// separately through ProcessPayment.
func (s *Service) AddPayment(ctx context.Context, billID uuid.UUID, amount float64, method string, reference *string) (*Payment, error) {
	p, err := NewPayment(billID, amount, method, reference)
	if err != nil {
		return nil, err
	}
	_, err = s.mutate(ctx, billID, func(txCtx context.Context, b *Bill) error {
		if err := b.AddPayment(p); err != nil {
			return err
		}
		return s.payments.Create(txCtx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ProcessPayment(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	p, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.Process(); err != nil {
		return nil, err
	}
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	return s.payments.ListByBill(ctx, billID)
}

func (s *Service) MarkBillOverdue(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	return s.mutate(ctx, billID, func(_ context.Context, b *Bill) error {
		b.MarkAsOverdue()
		return nil
	})
}

func (s *Service) CancelBill(ctx context.Context, billID uuid.UUID, reason string) (*Bill, error) {
	return s.mutate(ctx, billID, func(_ context.Context, b *Bill) error {
		b.Cancel(reason)
		return nil
	})
}

// DeleteBill hard-deletes a bill that has no payments or claims. Bills with
// financial activity must be cancelled instead so the ledger stays auditable.
func (s *Service) DeleteBill(ctx context.Context, billID uuid.UUID) error {
	b, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return err
	}
	if b.HasFinancialActivity() {
		return domainerr.Conflictf("bill has payments or claims; cancel it instead of deleting")
	}
	return s.bills.Delete(ctx, billID)
}

func (s *Service) SubmitClaim(ctx context.Context, billID, patientInsuranceID uuid.UUID, claimAmount float64, notes *string) (*InsuranceClaim, error) {
	if _, err := s.bills.GetByID(ctx, billID); err != nil {
		return nil, err
	}
	c, err := NewInsuranceClaim(billID, patientInsuranceID, claimAmount, notes)
	if err != nil {
		return nil, err
	}
	if err := s.claims.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) processClaim(ctx context.Context, claimID uuid.UUID, fn func(*InsuranceClaim) error) (*InsuranceClaim, error) {
	c, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.claims.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ApproveClaim(ctx context.Context, claimID uuid.UUID, approvedAmount, paidAmount float64) (*InsuranceClaim, error) {
	return s.processClaim(ctx, claimID, func(c *InsuranceClaim) error {
		return c.Approve(approvedAmount, paidAmount)
	})
}

func (s *Service) DenyClaim(ctx context.Context, claimID uuid.UUID, reason string) (*InsuranceClaim, error) {
	return s.processClaim(ctx, claimID, func(c *InsuranceClaim) error {
		return c.Deny(reason)
	})
}

func (s *Service) PartialApproveClaim(ctx context.Context, claimID uuid.UUID, approvedAmount, paidAmount float64, reason string) (*InsuranceClaim, error) {
	return s.processClaim(ctx, claimID, func(c *InsuranceClaim) error {
		return c.PartialApproval(approvedAmount, paidAmount, reason)
	})
}

func (s *Service) ListClaimsByBill(ctx context.Context, billID uuid.UUID) ([]*InsuranceClaim, error) {
	return s.claims.ListByBill(ctx, billID)
}
