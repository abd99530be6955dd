package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
	"github.com/clinicore/clinicore/pkg/money"
)

// Bill statuses. Draft bills accept item changes; FinalizeBill moves them to
// pending. The paid and partially_paid statuses are derived from payments.
const (
	BillStatusDraft         = "draft"
	BillStatusPending       = "pending"
	BillStatusPartiallyPaid = "partially_paid"
	BillStatusPaid          = "paid"
	BillStatusOverdue       = "overdue"
	BillStatusCancelled     = "cancelled"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
	PaymentStatusCancelled = "cancelled"
)

const (
	ClaimStatusSubmitted          = "submitted"
	ClaimStatusProcessing         = "processing"
	ClaimStatusApproved           = "approved"
	ClaimStatusDenied             = "denied"
	ClaimStatusPartiallyApproved  = "partially_approved"
	ClaimStatusPendingInformation = "pending_information"
)

const defaultDueDays = 30

// Bill maps to the bill table. The derived amounts (sub_total, tax_amount,
// total_amount, balance_amount) are recomputed after every item, tax,
// discount or payment change and never set directly.
type Bill struct {
	events.Recorder `json:"-"`

	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	BillNumber     string     `db:"bill_number" json:"bill_number"`
	BillDate       time.Time  `db:"bill_date" json:"bill_date"`
	DueDate        time.Time  `db:"due_date" json:"due_date"`
	TaxRate        float64    `db:"tax_rate" json:"tax_rate"`
	DiscountAmount float64    `db:"discount_amount" json:"discount_amount"`
	SubTotal       float64    `db:"sub_total" json:"sub_total"`
	TaxAmount      float64    `db:"tax_amount" json:"tax_amount"`
	TotalAmount    float64    `db:"total_amount" json:"total_amount"`
	PaidAmount     float64    `db:"paid_amount" json:"paid_amount"`
	BalanceAmount  float64    `db:"balance_amount" json:"balance_amount"`
	Status         string     `db:"status" json:"status"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	Items    []*BillItem       `json:"items,omitempty"`
	Payments []*Payment        `json:"payments,omitempty"`
	Claims   []*InsuranceClaim `json:"claims,omitempty"`
}

// BillItem maps to the bill_item table. Items are immutable once added
// except for quantity and unit price, which recompute the line total.
type BillItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BillID      uuid.UUID `db:"bill_id" json:"bill_id"`
	Description string    `db:"description" json:"description"`
	ServiceCode *string   `db:"service_code" json:"service_code,omitempty"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	TotalPrice  float64   `db:"total_price" json:"total_price"`
}

// Payment maps to the payment table. A payment attaches to a bill when
// recorded; settling it (Process) is a separate transition.
type Payment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BillID      uuid.UUID  `db:"bill_id" json:"bill_id"`
	Amount      float64    `db:"amount" json:"amount"`
	Method      string     `db:"method" json:"method"`
	Reference   *string    `db:"reference" json:"reference,omitempty"`
	Status      string     `db:"status" json:"status"`
	PaymentDate *time.Time `db:"payment_date" json:"payment_date,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// InsuranceClaim maps to the insurance_claim table.
type InsuranceClaim struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	BillID             uuid.UUID  `db:"bill_id" json:"bill_id"`
	PatientInsuranceID uuid.UUID  `db:"patient_insurance_id" json:"patient_insurance_id"`
	ClaimNumber        string     `db:"claim_number" json:"claim_number"`
	ClaimAmount        float64    `db:"claim_amount" json:"claim_amount"`
	ApprovedAmount     float64    `db:"approved_amount" json:"approved_amount"`
	PaidAmount         float64    `db:"paid_amount" json:"paid_amount"`
	Status             string     `db:"status" json:"status"`
	SubmittedDate      time.Time  `db:"submitted_date" json:"submitted_date"`
	ProcessedDate      *time.Time `db:"processed_date" json:"processed_date,omitempty"`
	DenialReason       *string    `db:"denial_reason" json:"denial_reason,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

func shortRef(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// NewBill creates a draft bill. A zero due date defaults to the bill date
// plus 30 days. Discounts are applied later through ApplyDiscount so the
// subtotal cap can be enforced.
func NewBill(patientID uuid.UUID, appointmentID *uuid.UUID, dueDate *time.Time, taxRate float64) (*Bill, error) {
	if patientID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("patient_id is required")
	}
	if taxRate < 0 {
		return nil, domainerr.InvalidArgumentf("tax rate cannot be negative")
	}
	billDate := time.Now()
	due := billDate.AddDate(0, 0, defaultDueDays)
	if dueDate != nil {
		if dueDate.Before(billDate) {
			return nil, domainerr.InvalidArgumentf("due date cannot be before the bill date")
		}
		due = *dueDate
	}
	b := &Bill{
		ID:            uuid.New(),
		PatientID:     patientID,
		AppointmentID: appointmentID,
		BillNumber:    shortRef("BILL"),
		BillDate:      billDate,
		DueDate:       due,
		TaxRate:       taxRate,
		Status:        BillStatusDraft,
	}
	b.recompute()
	b.Record("bill.created", b.ID, map[string]interface{}{
		"patient_id":  patientID.String(),
		"bill_number": b.BillNumber,
	})
	return b, nil
}

// recompute derives the ledger amounts. Rounding is half away from zero to
// two decimals so tax amounts stay deterministic.
func (b *Bill) recompute() {
	sub := 0.0
	for _, it := range b.Items {
		sub += it.TotalPrice
	}
	b.SubTotal = money.Round2(sub)
	b.TaxAmount = money.Mul(b.SubTotal, b.TaxRate)
	b.TotalAmount = money.Clamp(money.Round2(b.SubTotal + b.TaxAmount - b.DiscountAmount))
	b.BalanceAmount = money.Round2(b.TotalAmount - b.PaidAmount)
}

// AddItem appends a line item while the bill is draft.
func (b *Bill) AddItem(description string, serviceCode *string, quantity int, unitPrice float64) (*BillItem, error) {
	if b.Status != BillStatusDraft {
		return nil, domainerr.InvalidStatef("items can only be added to draft bills (status %s)", b.Status)
	}
	if description == "" {
		return nil, domainerr.InvalidArgumentf("item description is required")
	}
	if quantity <= 0 {
		return nil, domainerr.InvalidArgumentf("quantity must be positive")
	}
	if unitPrice < 0 {
		return nil, domainerr.InvalidArgumentf("unit price cannot be negative")
	}
	it := &BillItem{
		ID:          uuid.New(),
		BillID:      b.ID,
		Description: description,
		ServiceCode: serviceCode,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  money.Mul(float64(quantity), unitPrice),
	}
	b.Items = append(b.Items, it)
	b.recompute()
	return it, nil
}

// UpdateItem changes an item's quantity and unit price, recomputing the line
// total and the ledger.
func (b *Bill) UpdateItem(itemID uuid.UUID, quantity int, unitPrice float64) (*BillItem, error) {
	if b.Status != BillStatusDraft {
		return nil, domainerr.InvalidStatef("items can only be changed on draft bills (status %s)", b.Status)
	}
	if quantity <= 0 {
		return nil, domainerr.InvalidArgumentf("quantity must be positive")
	}
	if unitPrice < 0 {
		return nil, domainerr.InvalidArgumentf("unit price cannot be negative")
	}
	for _, it := range b.Items {
		if it.ID == itemID {
			it.Quantity = quantity
			it.UnitPrice = unitPrice
			it.TotalPrice = money.Mul(float64(quantity), unitPrice)
			b.recompute()
			return it, nil
		}
	}
	return nil, domainerr.NotFoundf("bill item not found")
}

// RemoveItem drops a line item while the bill is draft.
func (b *Bill) RemoveItem(itemID uuid.UUID) error {
	if b.Status != BillStatusDraft {
		return domainerr.InvalidStatef("items can only be removed from draft bills (status %s)", b.Status)
	}
	for i, it := range b.Items {
		if it.ID == itemID {
			b.Items = append(b.Items[:i], b.Items[i+1:]...)
			b.recompute()
			return nil
		}
	}
	return domainerr.NotFoundf("bill item not found")
}

// SetDueDate moves the due date, never before the bill date.
func (b *Bill) SetDueDate(date time.Time) error {
	if date.Before(b.BillDate) {
		return domainerr.InvalidArgumentf("due date cannot be before the bill date")
	}
	b.DueDate = date
	return nil
}

// SetTaxRate changes the tax fraction and recomputes the ledger.
func (b *Bill) SetTaxRate(rate float64) error {
	if rate < 0 {
		return domainerr.InvalidArgumentf("tax rate cannot be negative")
	}
	b.TaxRate = rate
	b.recompute()
	return nil
}

// ApplyDiscount stores a discount capped at the subtotal. A reason, when
// given, overwrites the bill notes.
func (b *Bill) ApplyDiscount(amount float64, reason *string) error {
	if amount < 0 {
		return domainerr.InvalidArgumentf("discount cannot be negative")
	}
	if b.SubTotal == 0 && amount > 0 {
		return domainerr.InvalidStatef("cannot discount a bill with no charges")
	}
	if amount > b.SubTotal {
		return domainerr.InvalidArgumentf("discount cannot exceed the subtotal")
	}
	b.DiscountAmount = amount
	if reason != nil {
		b.Notes = reason
	}
	b.recompute()
	return nil
}

// FinalizeBill moves a draft bill with at least one item to pending.
func (b *Bill) FinalizeBill() error {
	if b.Status != BillStatusDraft {
		return domainerr.InvalidStatef("only draft bills can be finalized (status %s)", b.Status)
	}
	if len(b.Items) == 0 {
		return domainerr.InvalidStatef("cannot finalize a bill with no items")
	}
	b.Status = BillStatusPending
	b.Record("bill.finalized", b.ID, map[string]interface{}{
		"bill_number":  b.BillNumber,
		"total_amount": b.TotalAmount,
	})
	return nil
}

// AddPayment counts a payment against the balance. Amounts are never
// validated against the remaining balance; overpayment is representable and
// refunds are a separate flow.
func (b *Bill) AddPayment(p *Payment) error {
	if p.Amount <= 0 {
		return domainerr.InvalidArgumentf("payment amount must be positive")
	}
	p.BillID = b.ID
	b.Payments = append(b.Payments, p)
	b.PaidAmount = money.Round2(b.PaidAmount + p.Amount)
	b.recompute()
	if b.BalanceAmount <= 0 {
		b.Status = BillStatusPaid
		b.Record("bill.paid", b.ID, map[string]interface{}{"bill_number": b.BillNumber})
	} else if b.PaidAmount > 0 {
		b.Status = BillStatusPartiallyPaid
	}
	return nil
}

// MarkAsOverdue flips an unpaid bill past its due date to overdue. Calling
// it in any other situation is a no-op, so schedulers can invoke it blindly.
func (b *Bill) MarkAsOverdue() {
	if b.Status != BillStatusPending && b.Status != BillStatusPartiallyPaid {
		return
	}
	if time.Now().After(b.DueDate) && b.BalanceAmount > 0 {
		b.Status = BillStatusOverdue
		b.Record("bill.overdue", b.ID, map[string]interface{}{"bill_number": b.BillNumber})
	}
}

// Cancel voids the bill from any status, annotating the notes with the
// reason. Paid bills remain cancellable; refunds are handled elsewhere.
func (b *Bill) Cancel(reason string) {
	b.Status = BillStatusCancelled
	if reason != "" {
		note := "cancelled: " + reason
		if b.Notes != nil && *b.Notes != "" {
			note = *b.Notes + "\n" + note
		}
		b.Notes = &note
	}
	b.Record("bill.cancelled", b.ID, map[string]interface{}{"reason": reason})
}

// HasFinancialActivity reports whether payments or claims reference the
// bill. Such bills cannot be hard-deleted.
func (b *Bill) HasFinancialActivity() bool {
	return len(b.Payments) > 0 || len(b.Claims) > 0
}

// NewPayment creates a pending payment against a bill.
func NewPayment(billID uuid.UUID, amount float64, method string, reference *string) (*Payment, error) {
	if billID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("bill_id is required")
	}
	if amount <= 0 {
		return nil, domainerr.InvalidArgumentf("payment amount must be positive")
	}
	if method == "" {
		return nil, domainerr.InvalidArgumentf("payment method is required")
	}
	return &Payment{
		ID:        uuid.New(),
		BillID:    billID,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		Status:    PaymentStatusPending,
	}, nil
}

// Process settles the payment. Re-processing a completed payment fails.
func (p *Payment) Process() error {
	if p.Status == PaymentStatusCompleted {
		return domainerr.InvalidStatef("payment is already completed")
	}
	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.PaymentDate = &now
	return nil
}

// NewInsuranceClaim submits a claim for a bill.
func NewInsuranceClaim(billID, patientInsuranceID uuid.UUID, claimAmount float64, notes *string) (*InsuranceClaim, error) {
	if billID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("bill_id is required")
	}
	if patientInsuranceID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("patient_insurance_id is required")
	}
	if claimAmount <= 0 {
		return nil, domainerr.InvalidArgumentf("claim amount must be positive")
	}
	return &InsuranceClaim{
		ID:                 uuid.New(),
		BillID:             billID,
		PatientInsuranceID: patientInsuranceID,
		ClaimNumber:        shortRef("CLM"),
		ClaimAmount:        claimAmount,
		Status:             ClaimStatusSubmitted,
		SubmittedDate:      time.Now(),
		Notes:              notes,
	}, nil
}

func (c *InsuranceClaim) guardUnprocessed() error {
	if c.ProcessedDate != nil {
		return domainerr.InvalidStatef("claim has already been processed")
	}
	return nil
}

func (c *InsuranceClaim) stampProcessed() {
	now := time.Now()
	c.ProcessedDate = &now
}

// Approve settles the claim in full.
func (c *InsuranceClaim) Approve(approvedAmount, paidAmount float64) error {
	if err := c.guardUnprocessed(); err != nil {
		return err
	}
	if approvedAmount <= 0 {
		return domainerr.InvalidArgumentf("approved amount must be positive")
	}
	if paidAmount < 0 || paidAmount > approvedAmount {
		return domainerr.InvalidArgumentf("paid amount must be between zero and the approved amount")
	}
	c.Status = ClaimStatusApproved
	c.ApprovedAmount = approvedAmount
	c.PaidAmount = paidAmount
	c.stampProcessed()
	return nil
}

// Deny rejects the claim with a reason.
func (c *InsuranceClaim) Deny(reason string) error {
	if err := c.guardUnprocessed(); err != nil {
		return err
	}
	if reason == "" {
		return domainerr.InvalidArgumentf("denial reason is required")
	}
	c.Status = ClaimStatusDenied
	c.DenialReason = &reason
	c.stampProcessed()
	return nil
}

// PartialApproval settles the claim below the claimed amount.
func (c *InsuranceClaim) PartialApproval(approvedAmount, paidAmount float64, reason string) error {
	if err := c.guardUnprocessed(); err != nil {
		return err
	}
	if approvedAmount <= 0 || approvedAmount >= c.ClaimAmount {
		return domainerr.InvalidArgumentf("partial approval must be positive and below the claim amount")
	}
	if paidAmount < 0 || paidAmount > approvedAmount {
		return domainerr.InvalidArgumentf("paid amount must be between zero and the approved amount")
	}
	c.Status = ClaimStatusPartiallyApproved
	c.ApprovedAmount = approvedAmount
	c.PaidAmount = paidAmount
	if reason != "" {
		c.Notes = &reason
	}
	c.stampProcessed()
	return nil
}
