package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Bill Repository ===========

type billRepoPG struct{ pool *pgxpool.Pool }

func NewBillRepoPG(pool *pgxpool.Pool) BillRepository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *billRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const billCols = `id, patient_id, appointment_id, bill_number, bill_date, due_date,
	tax_rate, discount_amount, sub_total, tax_amount, total_amount, paid_amount,
	balance_amount, status, notes, created_at, updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.AppointmentID, &b.BillNumber, &b.BillDate,
		&b.DueDate, &b.TaxRate, &b.DiscountAmount, &b.SubTotal, &b.TaxAmount,
		&b.TotalAmount, &b.PaidAmount, &b.BalanceAmount, &b.Status, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.NotFoundf("bill not found")
		}
		return nil, err
	}
	return &b, nil
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill (`+billCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		b.ID, b.PatientID, b.AppointmentID, b.BillNumber, b.BillDate, b.DueDate,
		b.TaxRate, b.DiscountAmount, b.SubTotal, b.TaxAmount, b.TotalAmount,
		b.PaidAmount, b.BalanceAmount, b.Status, b.Notes, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *billRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bill WHERE id = $1`, id)
	b, err := scanBill(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadCollections(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *billRepoPG) GetByBillNumber(ctx context.Context, billNumber string) (*Bill, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bill WHERE bill_number = $1`, billNumber)
	b, err := scanBill(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadCollections(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

const itemCols = `id, bill_id, description, service_code, quantity, unit_price, total_price`

func (r *billRepoPG) loadCollections(ctx context.Context, b *Bill) error {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+itemCols+` FROM bill_item WHERE bill_id = $1 ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.Description, &it.ServiceCode,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return err
		}
		b.Items = append(b.Items, &it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := r.conn(ctx).Query(ctx, `SELECT `+paymentCols+` FROM payment WHERE bill_id = $1 ORDER BY created_at`, b.ID)
	if err != nil {
		return err
	}
	defer prows.Close()
	for prows.Next() {
		p, err := scanPayment(prows)
		if err != nil {
			return err
		}
		b.Payments = append(b.Payments, p)
	}
	if err := prows.Err(); err != nil {
		return err
	}

	crows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM insurance_claim WHERE bill_id = $1 ORDER BY created_at`, b.ID)
	if err != nil {
		return err
	}
	defer crows.Close()
	for crows.Next() {
		c, err := scanClaim(crows)
		if err != nil {
			return err
		}
		b.Claims = append(b.Claims, c)
	}
	return crows.Err()
}

func (r *billRepoPG) Update(ctx context.Context, b *Bill) error {
	b.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill SET due_date = $2, tax_rate = $3, discount_amount = $4,
			sub_total = $5, tax_amount = $6, total_amount = $7, paid_amount = $8,
			balance_amount = $9, status = $10, notes = $11, updated_at = $12
		WHERE id = $1`,
		b.ID, b.DueDate, b.TaxRate, b.DiscountAmount, b.SubTotal, b.TaxAmount,
		b.TotalAmount, b.PaidAmount, b.BalanceAmount, b.Status, b.Notes, b.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("bill not found")
	}
	return nil
}

func (r *billRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bill WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("bill not found")
	}
	return nil
}

func (r *billRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Bill, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bill `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := `SELECT ` + billCols + ` FROM bill ` + where +
		` ORDER BY bill_date DESC LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var bills []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, b)
	}
	return bills, total, rows.Err()
}

func (r *billRepoPG) List(ctx context.Context, limit, offset int) ([]*Bill, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *billRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	return r.list(ctx, `WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *billRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Bill, int, error) {
	return r.list(ctx, `WHERE status = $1`, []interface{}{status}, limit, offset)
}

func (r *billRepoPG) AddItem(ctx context.Context, it *BillItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bill_item (`+itemCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		it.ID, it.BillID, it.Description, it.ServiceCode, it.Quantity, it.UnitPrice, it.TotalPrice)
	return err
}

func (r *billRepoPG) UpdateItem(ctx context.Context, it *BillItem) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bill_item SET quantity = $2, unit_price = $3, total_price = $4 WHERE id = $1`,
		it.ID, it.Quantity, it.UnitPrice, it.TotalPrice)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("bill item not found")
	}
	return nil
}

func (r *billRepoPG) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bill_item WHERE id = $1`, itemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("bill item not found")
	}
	return nil
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const paymentCols = `id, bill_id, amount, method, reference, status, payment_date, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.BillID, &p.Amount, &p.Method, &p.Reference,
		&p.Status, &p.PaymentDate, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.NotFoundf("payment not found")
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (`+paymentCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.BillID, p.Amount, p.Method, p.Reference, p.Status, p.PaymentDate, p.CreatedAt)
	return err
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+paymentCols+` FROM payment WHERE id = $1`, id)
	return scanPayment(row)
}

func (r *paymentRepoPG) Update(ctx context.Context, p *Payment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payment SET status = $2, payment_date = $3 WHERE id = $1`,
		p.ID, p.Status, p.PaymentDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("payment not found")
	}
	return nil
}

func (r *paymentRepoPG) ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+paymentCols+` FROM payment WHERE bill_id = $1 ORDER BY created_at`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =========== Insurance Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) InsuranceClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const claimCols = `id, bill_id, patient_insurance_id, claim_number, claim_amount,
	approved_amount, paid_amount, status, submitted_date, processed_date,
	denial_reason, notes, created_at`

func scanClaim(row pgx.Row) (*InsuranceClaim, error) {
	var c InsuranceClaim
	err := row.Scan(&c.ID, &c.BillID, &c.PatientInsuranceID, &c.ClaimNumber,
		&c.ClaimAmount, &c.ApprovedAmount, &c.PaidAmount, &c.Status,
		&c.SubmittedDate, &c.ProcessedDate, &c.DenialReason, &c.Notes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.NotFoundf("insurance claim not found")
		}
		return nil, err
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *InsuranceClaim) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_claim (`+claimCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		c.ID, c.BillID, c.PatientInsuranceID, c.ClaimNumber, c.ClaimAmount,
		c.ApprovedAmount, c.PaidAmount, c.Status, c.SubmittedDate, c.ProcessedDate,
		c.DenialReason, c.Notes, c.CreatedAt)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InsuranceClaim, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM insurance_claim WHERE id = $1`, id)
	return scanClaim(row)
}

func (r *claimRepoPG) Update(ctx context.Context, c *InsuranceClaim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_claim SET approved_amount = $2, paid_amount = $3, status = $4,
			processed_date = $5, denial_reason = $6, notes = $7
		WHERE id = $1`,
		c.ID, c.ApprovedAmount, c.PaidAmount, c.Status, c.ProcessedDate, c.DenialReason, c.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("insurance claim not found")
	}
	return nil
}

func (r *claimRepoPG) ListByBill(ctx context.Context, billID uuid.UUID) ([]*InsuranceClaim, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM insurance_claim WHERE bill_id = $1 ORDER BY created_at`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var claims []*InsuranceClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
