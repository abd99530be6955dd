package records

import (
	"context"
	"errors"
	"fmt"

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

type medicalRecordRepoPG struct{ pool *pgxpool.Pool }

func NewMedicalRecordRepoPG(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepoPG{pool: pool}
}

func (r *medicalRecordRepoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *medicalRecordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recordCols = `id, patient_id, doctor_id, appointment_id, chief_complaint,
	history_of_present_illness, physical_examination, assessment, treatment_plan,
	notes, is_finalized, finalized_date, finalized_by, created_at, updated_at`

func (r *medicalRecordRepoPG) scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.AppointmentID, &rec.ChiefComplaint,
		&rec.HistoryOfPresentIllness, &rec.PhysicalExamination, &rec.Assessment, &rec.TreatmentPlan,
		&rec.Notes, &rec.IsFinalized, &rec.FinalizedDate, &rec.FinalizedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainerr.NotFoundf("medical record not found")
	}
	return &rec, err
}

func (r *medicalRecordRepoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (id, patient_id, doctor_id, appointment_id, chief_complaint,
			history_of_present_illness, physical_examination, assessment, treatment_plan, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.AppointmentID, rec.ChiefComplaint,
		rec.HistoryOfPresentIllness, rec.PhysicalExamination, rec.Assessment, rec.TreatmentPlan, rec.Notes)
	return err
}

func (r *medicalRecordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	rec, err := r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM medical_record WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadCollections(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *medicalRecordRepoPG) loadCollections(ctx context.Context, rec *MedicalRecord) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, medical_record_id, recorded_at, temperature_celsius, systolic_bp, diastolic_bp,
			heart_rate, respiratory_rate, oxygen_saturation, height_cm, weight_kg, notes
		FROM vital_signs WHERE medical_record_id = $1 ORDER BY recorded_at`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var v VitalSigns
		if err := rows.Scan(&v.ID, &v.MedicalRecordID, &v.RecordedAt, &v.TemperatureCelsius,
			&v.SystolicBP, &v.DiastolicBP, &v.HeartRate, &v.RespiratoryRate,
			&v.OxygenSaturation, &v.HeightCm, &v.WeightKg, &v.Notes); err != nil {
			return err
		}
		rec.VitalSigns = append(rec.VitalSigns, &v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT id, medical_record_id, code, description, is_primary, diagnosed_at, notes
		FROM diagnosis WHERE medical_record_id = $1 ORDER BY diagnosed_at`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.MedicalRecordID, &d.Code, &d.Description,
			&d.IsPrimary, &d.DiagnosedAt, &d.Notes); err != nil {
			return err
		}
		rec.Diagnoses = append(rec.Diagnoses, &d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT id, medical_record_id, medication_name, dosage, frequency, duration_days,
			instructions, prescribed_at
		FROM prescription WHERE medical_record_id = $1 ORDER BY prescribed_at`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p Prescription
		if err := rows.Scan(&p.ID, &p.MedicalRecordID, &p.MedicationName, &p.Dosage,
			&p.Frequency, &p.DurationDays, &p.Instructions, &p.PrescribedAt); err != nil {
			return err
		}
		rec.Prescriptions = append(rec.Prescriptions, &p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.conn(ctx).Query(ctx, `
		SELECT id, medical_record_id, procedure_code, name, description, performed_at, performed_by, notes
		FROM treatment_record WHERE medical_record_id = $1 ORDER BY performed_at`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var tr TreatmentRecord
		if err := rows.Scan(&tr.ID, &tr.MedicalRecordID, &tr.ProcedureCode, &tr.Name,
			&tr.Description, &tr.PerformedAt, &tr.PerformedBy, &tr.Notes); err != nil {
			return err
		}
		rec.Treatments = append(rec.Treatments, &tr)
	}
	return rows.Err()
}

func (r *medicalRecordRepoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_record SET chief_complaint=$2, history_of_present_illness=$3,
			physical_examination=$4, assessment=$5, treatment_plan=$6, notes=$7,
			is_finalized=$8, finalized_date=$9, finalized_by=$10, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.ChiefComplaint, rec.HistoryOfPresentIllness, rec.PhysicalExamination,
		rec.Assessment, rec.TreatmentPlan, rec.Notes,
		rec.IsFinalized, rec.FinalizedDate, rec.FinalizedBy)
	return err
}

func (r *medicalRecordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_record WHERE id = $1`, id)
	return err
}

func (r *medicalRecordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return r.list(ctx, `patient_id = $1`, patientID, limit, offset)
}

func (r *medicalRecordRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return r.list(ctx, `doctor_id = $1`, doctorID, limit, offset)
}

func (r *medicalRecordRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*MedicalRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_record WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM medical_record WHERE %s ORDER BY created_at DESC LIMIT $2 OFFSET $3`, recordCols, where),
		arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *medicalRecordRepoPG) AddVitalSigns(ctx context.Context, v *VitalSigns) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_signs (id, medical_record_id, recorded_at, temperature_celsius,
			systolic_bp, diastolic_bp, heart_rate, respiratory_rate, oxygen_saturation,
			height_cm, weight_kg, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		v.ID, v.MedicalRecordID, v.RecordedAt, v.TemperatureCelsius,
		v.SystolicBP, v.DiastolicBP, v.HeartRate, v.RespiratoryRate, v.OxygenSaturation,
		v.HeightCm, v.WeightKg, v.Notes)
	return err
}

func (r *medicalRecordRepoPG) AddDiagnosis(ctx context.Context, d *Diagnosis) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO diagnosis (id, medical_record_id, code, description, is_primary, diagnosed_at, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.MedicalRecordID, d.Code, d.Description, d.IsPrimary, d.DiagnosedAt, d.Notes)
	return err
}

func (r *medicalRecordRepoPG) SetPrimaryDiagnosis(ctx context.Context, recordID, diagnosisID uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx,
		`UPDATE diagnosis SET is_primary = false WHERE medical_record_id = $1`, recordID); err != nil {
		return err
	}
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE diagnosis SET is_primary = true WHERE id = $1 AND medical_record_id = $2`, diagnosisID, recordID)
	return err
}

func (r *medicalRecordRepoPG) AddPrescription(ctx context.Context, p *Prescription) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription (id, medical_record_id, medication_name, dosage, frequency,
			duration_days, instructions, prescribed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.MedicalRecordID, p.MedicationName, p.Dosage, p.Frequency,
		p.DurationDays, p.Instructions, p.PrescribedAt)
	return err
}

func (r *medicalRecordRepoPG) AddTreatment(ctx context.Context, tr *TreatmentRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_record (id, medical_record_id, procedure_code, name, description,
			performed_at, performed_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		tr.ID, tr.MedicalRecordID, tr.ProcedureCode, tr.Name, tr.Description,
		tr.PerformedAt, tr.PerformedBy, tr.Notes)
	return err
}
