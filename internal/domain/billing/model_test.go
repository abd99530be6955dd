package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
)

func ptrStr(s string) *string { return &s }

func newDraftBill(t *testing.T, taxRate float64) *Bill {
	t.Helper()
	b, err := NewBill(uuid.New(), nil, nil, taxRate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.TakeEvents()
	return b
}

func TestNewBill_Defaults(t *testing.T) {
	b := newDraftBill(t, 0)
	if b.Status != BillStatusDraft {
		t.Errorf("status = %s, want draft", b.Status)
	}
	wantDue := b.BillDate.AddDate(0, 0, 30)
	if !b.DueDate.Equal(wantDue) {
		t.Errorf("due date = %v, want %v", b.DueDate, wantDue)
	}
	if b.BillNumber == "" || len(b.BillNumber) != len("BILL-XXXXXXXX") {
		t.Errorf("unexpected bill number %q", b.BillNumber)
	}
}

func TestNewBill_DueBeforeBillDateRejected(t *testing.T) {
	past := time.Now().AddDate(0, 0, -1)
	if _, err := NewBill(uuid.New(), nil, &past, 0); err == nil {
		t.Fatal("expected error for due date before bill date")
	}
}

func TestNewBill_NegativeTaxRateRejected(t *testing.T) {
	if _, err := NewBill(uuid.New(), nil, nil, -0.1); err == nil {
		t.Fatal("expected error for negative tax rate")
	}
}

func TestBill_LedgerScenario(t *testing.T) {
	b := newDraftBill(t, 0.12)
	if _, err := b.AddItem("Consultation", ptrStr("CONS-01"), 2, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.SubTotal != 1000 {
		t.Errorf("sub total = %v, want 1000", b.SubTotal)
	}
	if b.TaxAmount != 120 {
		t.Errorf("tax amount = %v, want 120", b.TaxAmount)
	}
	if b.TotalAmount != 1120 {
		t.Errorf("total amount = %v, want 1120", b.TotalAmount)
	}
	if b.BalanceAmount != 1120 {
		t.Errorf("balance = %v, want 1120", b.BalanceAmount)
	}

	if err := b.FinalizeBill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := NewPayment(b.ID, 1120, "cash", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.AddPayment(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != BillStatusPaid {
		t.Errorf("status = %s, want paid", b.Status)
	}
	if b.BalanceAmount != 0 {
		t.Errorf("balance = %v, want 0", b.BalanceAmount)
	}
}

func TestBill_RecomputeIdempotent(t *testing.T) {
	b := newDraftBill(t, 0.07)
	if _, err := b.AddItem("Lab panel", nil, 3, 33.33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sub, tax, total, bal := b.SubTotal, b.TaxAmount, b.TotalAmount, b.BalanceAmount
	b.recompute()
	if b.SubTotal != sub || b.TaxAmount != tax || b.TotalAmount != total || b.BalanceAmount != bal {
		t.Errorf("recompute changed a settled ledger: %v/%v/%v/%v vs %v/%v/%v/%v",
			b.SubTotal, b.TaxAmount, b.TotalAmount, b.BalanceAmount, sub, tax, total, bal)
	}
}

func TestBill_ItemChangesOnlyWhileDraft(t *testing.T) {
	b := newDraftBill(t, 0)
	it, err := b.AddItem("X-ray", nil, 1, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.FinalizeBill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.AddItem("Extra", nil, 1, 10); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("AddItem after finalize: got %v, want invalid state", err)
	}
	if _, err := b.UpdateItem(it.ID, 2, 250); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("UpdateItem after finalize: got %v, want invalid state", err)
	}
	if err := b.RemoveItem(it.ID); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("RemoveItem after finalize: got %v, want invalid state", err)
	}
}

func TestBill_UpdateItemRecomputesLineTotal(t *testing.T) {
	b := newDraftBill(t, 0)
	it, err := b.AddItem("Dressing", nil, 1, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.UpdateItem(it.ID, 3, 45.50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.TotalPrice != 136.50 {
		t.Errorf("line total = %v, want 136.50", it.TotalPrice)
	}
	if b.SubTotal != 136.50 {
		t.Errorf("sub total = %v, want 136.50", b.SubTotal)
	}
}

func TestBill_RemoveUnknownItem(t *testing.T) {
	b := newDraftBill(t, 0)
	if err := b.RemoveItem(uuid.New()); !domainerr.IsKind(err, domainerr.NotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestApplyDiscount_CappedAtSubtotal(t *testing.T) {
	b := newDraftBill(t, 0)
	if _, err := b.AddItem("Surgery", nil, 1, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.ApplyDiscount(1500, nil); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Fatalf("got %v, want invalid argument", err)
	}
	if b.DiscountAmount != 0 || b.TotalAmount != 1000 {
		t.Errorf("amounts changed after rejected discount: discount=%v total=%v", b.DiscountAmount, b.TotalAmount)
	}
}

func TestApplyDiscount_NoChargesRejected(t *testing.T) {
	b := newDraftBill(t, 0)
	if err := b.ApplyDiscount(50, nil); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("got %v, want invalid state", err)
	}
}

func TestApplyDiscount_ReducesTotal(t *testing.T) {
	b := newDraftBill(t, 0.10)
	if _, err := b.AddItem("Therapy", nil, 1, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.ApplyDiscount(20, ptrStr("loyalty")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 200 + 20 tax - 20 discount
	if b.TotalAmount != 200 {
		t.Errorf("total = %v, want 200", b.TotalAmount)
	}
	if b.Notes == nil || *b.Notes != "loyalty" {
		t.Errorf("notes = %v, want loyalty", b.Notes)
	}
}

func TestFinalizeBill_RequiresItems(t *testing.T) {
	b := newDraftBill(t, 0)
	if err := b.FinalizeBill(); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("got %v, want invalid state", err)
	}
}

func TestFinalizeBill_OnlyFromDraft(t *testing.T) {
	b := newDraftBill(t, 0)
	if _, err := b.AddItem("Visit", nil, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.FinalizeBill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.FinalizeBill(); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("second finalize: got %v, want invalid state", err)
	}
}

func TestAddPayment_PartialThenFull(t *testing.T) {
	b := newDraftBill(t, 0)
	if _, err := b.AddItem("Visit", nil, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.FinalizeBill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.TakeEvents()

	p1, _ := NewPayment(b.ID, 40, "card", nil)
	if err := b.AddPayment(p1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != BillStatusPartiallyPaid {
		t.Errorf("status = %s, want partially_paid", b.Status)
	}
	if b.BalanceAmount != 60 {
		t.Errorf("balance = %v, want 60", b.BalanceAmount)
	}

	p2, _ := NewPayment(b.ID, 60, "card", nil)
	if err := b.AddPayment(p2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != BillStatusPaid {
		t.Errorf("status = %s, want paid", b.Status)
	}
	evs := b.TakeEvents()
	if len(evs) != 1 || evs[0].Name != "bill.paid" {
		t.Errorf("events = %v, want single bill.paid", evs)
	}
}

func TestAddPayment_NonPositiveRejected(t *testing.T) {
	b := newDraftBill(t, 0)
	p := &Payment{ID: uuid.New(), Amount: 0, Method: "cash"}
	if err := b.AddPayment(p); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("got %v, want invalid argument", err)
	}
	if len(b.Payments) != 0 {
		t.Error("rejected payment was attached")
	}
}

func TestMarkAsOverdue(t *testing.T) {
	b := newDraftBill(t, 0)
	if _, err := b.AddItem("Visit", nil, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.FinalizeBill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.TakeEvents()

	// not yet past due
	b.MarkAsOverdue()
	if b.Status != BillStatusPending {
		t.Errorf("status = %s, want pending", b.Status)
	}

	b.DueDate = time.Now().AddDate(0, 0, -1)
	b.MarkAsOverdue()
	if b.Status != BillStatusOverdue {
		t.Errorf("status = %s, want overdue", b.Status)
	}
	evs := b.TakeEvents()
	if len(evs) != 1 || evs[0].Name != "bill.overdue" {
		t.Errorf("events = %v, want single bill.overdue", evs)
	}

	// idempotent once overdue
	b.MarkAsOverdue()
	if len(b.TakeEvents()) != 0 {
		t.Error("second MarkAsOverdue recorded an event")
	}
}

func TestMarkAsOverdue_IgnoresCancelled(t *testing.T) {
	b := newDraftBill(t, 0)
	b.Cancel("dup")
	b.TakeEvents()
	b.DueDate = time.Now().AddDate(0, 0, -1)
	b.MarkAsOverdue()
	if b.Status != BillStatusCancelled {
		t.Errorf("status = %s, want cancelled", b.Status)
	}
}

func TestCancel_FromAnyStatus(t *testing.T) {
	b := newDraftBill(t, 0)
	if _, err := b.AddItem("Visit", nil, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.FinalizeBill(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := NewPayment(b.ID, 100, "cash", nil)
	if err := b.AddPayment(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != BillStatusPaid {
		t.Fatalf("status = %s, want paid", b.Status)
	}
	b.Cancel("billing error")
	if b.Status != BillStatusCancelled {
		t.Errorf("status = %s, want cancelled", b.Status)
	}
	if b.Notes == nil || *b.Notes != "cancelled: billing error" {
		t.Errorf("notes = %v", b.Notes)
	}
}

func TestPayment_ProcessOnce(t *testing.T) {
	p, err := NewPayment(uuid.New(), 50, "card", ptrStr("AUTH-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != PaymentStatusPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if err := p.Process(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != PaymentStatusCompleted || p.PaymentDate == nil {
		t.Errorf("payment not settled: %+v", p)
	}
	if err := p.Process(); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("re-process: got %v, want invalid state", err)
	}
}

func newSubmittedClaim(t *testing.T, amount float64) *InsuranceClaim {
	t.Helper()
	c, err := NewInsuranceClaim(uuid.New(), uuid.New(), amount, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestClaim_Approve(t *testing.T) {
	c := newSubmittedClaim(t, 800)
	if err := c.Approve(800, 800); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != ClaimStatusApproved || c.ProcessedDate == nil {
		t.Errorf("claim not approved: %+v", c)
	}
	if err := c.Approve(800, 800); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("re-approve: got %v, want invalid state", err)
	}
}

func TestClaim_ApproveRejectsBadAmounts(t *testing.T) {
	c := newSubmittedClaim(t, 800)
	if err := c.Approve(0, 0); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("zero approved: got %v", err)
	}
	if err := c.Approve(500, 600); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("paid above approved: got %v", err)
	}
	if c.ProcessedDate != nil {
		t.Error("rejected approval stamped the claim")
	}
}

func TestClaim_DenyRequiresReason(t *testing.T) {
	c := newSubmittedClaim(t, 300)
	if err := c.Deny(""); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("got %v, want invalid argument", err)
	}
	if err := c.Deny("not covered"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != ClaimStatusDenied || c.DenialReason == nil || *c.DenialReason != "not covered" {
		t.Errorf("claim not denied: %+v", c)
	}
}

func TestClaim_PartialApproval(t *testing.T) {
	c := newSubmittedClaim(t, 1000)
	if err := c.PartialApproval(1000, 1000, ""); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("full amount via partial: got %v", err)
	}
	if err := c.PartialApproval(600, 600, "deductible applied"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != ClaimStatusPartiallyApproved || c.ApprovedAmount != 600 {
		t.Errorf("claim not partially approved: %+v", c)
	}
	if c.Notes == nil || *c.Notes != "deductible applied" {
		t.Errorf("notes = %v", c.Notes)
	}
}

func TestHasFinancialActivity(t *testing.T) {
	b := newDraftBill(t, 0)
	if b.HasFinancialActivity() {
		t.Error("fresh bill reports financial activity")
	}
	if _, err := b.AddItem("Visit", nil, 1, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.HasFinancialActivity() {
		t.Error("items alone should not count as financial activity")
	}
	p, _ := NewPayment(b.ID, 10, "cash", nil)
	if err := b.AddPayment(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !b.HasFinancialActivity() {
		t.Error("bill with a payment reports no financial activity")
	}
}
