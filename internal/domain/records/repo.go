package records

import (
	"context"

	"github.com/google/uuid"
)

// MedicalRecordRepository persists the record root and its owned
// collections. GetByID loads the full aggregate. InTx runs fn in a single
// transaction; repository calls made through the context fn receives share it.
type MedicalRecordRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error)

	AddVitalSigns(ctx context.Context, v *VitalSigns) error
	AddDiagnosis(ctx context.Context, d *Diagnosis) error
	SetPrimaryDiagnosis(ctx context.Context, recordID, diagnosisID uuid.UUID) error
	AddPrescription(ctx context.Context, p *Prescription) error
	AddTreatment(ctx context.Context, tr *TreatmentRecord) error
}
