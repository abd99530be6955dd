package identity

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository { return &patientRepoPG{pool: pool} }

const patientCols = `id, mrn, first_name, last_name, birth_date, gender, blood_type,
	allergies, phone, email, address_line1, city, state, postal_code, country,
	emergency_contact_name, emergency_contact_phone, insurance_provider,
	insurance_number, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.BirthDate, &p.Gender,
		&p.BloodType, &p.Allergies, &p.Phone, &p.Email, &p.AddressLine1, &p.City,
		&p.State, &p.PostalCode, &p.Country, &p.EmergencyContactName,
		&p.EmergencyContactPhone, &p.InsuranceProvider, &p.InsuranceNumber,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.NotFoundf("patient not found")
		}
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (`+patientCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.BirthDate, p.Gender, p.BloodType,
		p.Allergies, p.Phone, p.Email, p.AddressLine1, p.City, p.State, p.PostalCode,
		p.Country, p.EmergencyContactName, p.EmergencyContactPhone, p.InsuranceProvider,
		p.InsuranceNumber, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *patientRepoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE mrn = $1`, mrn)
	return scanPatient(row)
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now()
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET first_name = $2, last_name = $3, birth_date = $4, gender = $5,
			blood_type = $6, allergies = $7, phone = $8, email = $9, address_line1 = $10,
			city = $11, state = $12, postal_code = $13, country = $14,
			emergency_contact_name = $15, emergency_contact_phone = $16,
			insurance_provider = $17, insurance_number = $18, active = $19, updated_at = $20
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Gender, p.BloodType, p.Allergies,
		p.Phone, p.Email, p.AddressLine1, p.City, p.State, p.PostalCode, p.Country,
		p.EmergencyContactName, p.EmergencyContactPhone, p.InsuranceProvider,
		p.InsuranceNumber, p.Active, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("patient not found")
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("patient not found")
	}
	return nil
}

func (r *patientRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM patient `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := `SELECT ` + patientCols + ` FROM patient ` + where +
		` ORDER BY last_name, first_name LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := conn(ctx, r.pool).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx, ``, nil, limit, offset)
}

func (r *patientRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return r.list(ctx, `WHERE first_name ILIKE $1 OR last_name ILIKE $1`,
		[]interface{}{"%" + name + "%"}, limit, offset)
}

func (r *patientRepoPG) HasRelatedData(ctx context.Context, id uuid.UUID) (bool, error) {
	var related bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointment WHERE patient_id = $1)
			OR EXISTS (SELECT 1 FROM medical_record WHERE patient_id = $1)
			OR EXISTS (SELECT 1 FROM bill WHERE patient_id = $1)`, id).Scan(&related)
	return related, err
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

const doctorCols = `id, first_name, last_name, specialization, license_number,
	phone, email, active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialization,
		&d.LicenseNumber, &d.Phone, &d.Email, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.NotFoundf("doctor not found")
		}
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctor (`+doctorCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.FirstName, d.LastName, d.Specialization, d.LicenseNumber,
		d.Phone, d.Email, d.Active, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	d.UpdatedAt = time.Now()
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE doctor SET first_name = $2, last_name = $3, specialization = $4,
			license_number = $5, phone = $6, email = $7, active = $8, updated_at = $9
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Specialization, d.LicenseNumber,
		d.Phone, d.Email, d.Active, d.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("doctor not found")
	}
	return nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("doctor not found")
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+doctorCols+` FROM doctor ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var doctors []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	return doctors, total, rows.Err()
}

func hasClinicalReferences(ctx context.Context, q queryable, id uuid.UUID) (bool, error) {
	var related bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointment WHERE doctor_id = $1)
			OR EXISTS (SELECT 1 FROM medical_record WHERE doctor_id = $1)`, id).Scan(&related)
	return related, err
}

func (r *doctorRepoPG) HasRelatedData(ctx context.Context, id uuid.UUID) (bool, error) {
	return hasClinicalReferences(ctx, conn(ctx, r.pool), id)
}

// =========== Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

const staffCols = `id, first_name, last_name, role, phone, email, active, created_at, updated_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Role, &s.Phone,
		&s.Email, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainerr.NotFoundf("staff member not found")
		}
		return nil, err
	}
	return &s, nil
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO staff (`+staffCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.FirstName, s.LastName, s.Role, s.Phone, s.Email, s.Active, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id)
	return scanStaff(row)
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	s.UpdatedAt = time.Now()
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE staff SET first_name = $2, last_name = $3, role = $4, phone = $5,
			email = $6, active = $7, updated_at = $8
		WHERE id = $1`,
		s.ID, s.FirstName, s.LastName, s.Role, s.Phone, s.Email, s.Active, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("staff member not found")
	}
	return nil
}

func (r *staffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("staff member not found")
	}
	return nil
}

func (r *staffRepoPG) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM staff`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+staffCols+` FROM staff ORDER BY last_name, first_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var members []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		members = append(members, s)
	}
	return members, total, rows.Err()
}

// Staff share the scheduling identity id-space with doctors, so the same
// reference check applies.
func (r *staffRepoPG) HasRelatedData(ctx context.Context, id uuid.UUID) (bool, error) {
	return hasClinicalReferences(ctx, conn(ctx, r.pool), id)
}
