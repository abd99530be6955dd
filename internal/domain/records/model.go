package records

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
)

// MedicalRecord maps to the medical_record table. The record starts as a
// draft; once finalized every mutator fails until an explicit Reopen. The
// sub-entity collections are owned by the record and loaded with it.
type MedicalRecord struct {
	events.Recorder `json:"-"`

	ID                      uuid.UUID  `db:"id" json:"id"`
	PatientID               uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID                uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentID           *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	ChiefComplaint          string     `db:"chief_complaint" json:"chief_complaint"`
	HistoryOfPresentIllness string     `db:"history_of_present_illness" json:"history_of_present_illness"`
	PhysicalExamination     string     `db:"physical_examination" json:"physical_examination"`
	Assessment              string     `db:"assessment" json:"assessment"`
	TreatmentPlan           string     `db:"treatment_plan" json:"treatment_plan"`
	Notes                   string     `db:"notes" json:"notes"`
	IsFinalized             bool       `db:"is_finalized" json:"is_finalized"`
	FinalizedDate           *time.Time `db:"finalized_date" json:"finalized_date,omitempty"`
	FinalizedBy             *uuid.UUID `db:"finalized_by" json:"finalized_by,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`

	VitalSigns    []*VitalSigns      `json:"vital_signs,omitempty"`
	Diagnoses     []*Diagnosis       `json:"diagnoses,omitempty"`
	Prescriptions []*Prescription    `json:"prescriptions,omitempty"`
	Treatments    []*TreatmentRecord `json:"treatments,omitempty"`
}

// VitalSigns maps to the vital_signs table.
type VitalSigns struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	MedicalRecordID    uuid.UUID `db:"medical_record_id" json:"medical_record_id"`
	RecordedAt         time.Time `db:"recorded_at" json:"recorded_at"`
	TemperatureCelsius *float64  `db:"temperature_celsius" json:"temperature_celsius,omitempty"`
	SystolicBP         *int      `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP        *int      `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	HeartRate          *int      `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate    *int      `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation   *float64  `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	HeightCm           *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKg           *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	Notes              *string   `db:"notes" json:"notes,omitempty"`
}

// Diagnosis maps to the diagnosis table. At most one diagnosis per record
// carries the primary flag.
type Diagnosis struct {
	ID              uuid.UUID `db:"id" json:"id"`
	MedicalRecordID uuid.UUID `db:"medical_record_id" json:"medical_record_id"`
	Code            string    `db:"code" json:"code"`
	Description     string    `db:"description" json:"description"`
	IsPrimary       bool      `db:"is_primary" json:"is_primary"`
	DiagnosedAt     time.Time `db:"diagnosed_at" json:"diagnosed_at"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
}

// Prescription maps to the prescription table.
type Prescription struct {
	ID              uuid.UUID `db:"id" json:"id"`
	MedicalRecordID uuid.UUID `db:"medical_record_id" json:"medical_record_id"`
	MedicationName  string    `db:"medication_name" json:"medication_name"`
	Dosage          string    `db:"dosage" json:"dosage"`
	Frequency       string    `db:"frequency" json:"frequency"`
	DurationDays    *int      `db:"duration_days" json:"duration_days,omitempty"`
	Instructions    *string   `db:"instructions" json:"instructions,omitempty"`
	PrescribedAt    time.Time `db:"prescribed_at" json:"prescribed_at"`
}

// TreatmentRecord maps to the treatment_record table.
type TreatmentRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	MedicalRecordID uuid.UUID  `db:"medical_record_id" json:"medical_record_id"`
	ProcedureCode   *string    `db:"procedure_code" json:"procedure_code,omitempty"`
	Name            string     `db:"name" json:"name"`
	Description     *string    `db:"description" json:"description,omitempty"`
	PerformedAt     time.Time  `db:"performed_at" json:"performed_at"`
	PerformedBy     *uuid.UUID `db:"performed_by" json:"performed_by,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
}

// NewMedicalRecord creates a draft record.
func NewMedicalRecord(patientID, doctorID uuid.UUID, appointmentID *uuid.UUID) (*MedicalRecord, error) {
	if patientID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("patient_id is required")
	}
	if doctorID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("doctor_id is required")
	}
	r := &MedicalRecord{
		ID:            uuid.New(),
		PatientID:     patientID,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
	}
	r.Record("medical_record.created", r.ID, map[string]interface{}{
		"patient_id": patientID.String(),
		"doctor_id":  doctorID.String(),
	})
	return r, nil
}

func (r *MedicalRecord) guardDraft() error {
	if r.IsFinalized {
		return domainerr.InvalidStatef("medical record is finalized; reopen it before editing")
	}
	return nil
}

// SectionUpdate carries the text sections to change. Nil fields are left
// untouched.
type SectionUpdate struct {
	ChiefComplaint          *string `json:"chief_complaint,omitempty"`
	HistoryOfPresentIllness *string `json:"history_of_present_illness,omitempty"`
	PhysicalExamination     *string `json:"physical_examination,omitempty"`
	Assessment              *string `json:"assessment,omitempty"`
	TreatmentPlan           *string `json:"treatment_plan,omitempty"`
	Notes                   *string `json:"notes,omitempty"`
}

// UpdateSections applies a partial update to the text sections.
func (r *MedicalRecord) UpdateSections(u SectionUpdate) error {
	if err := r.guardDraft(); err != nil {
		return err
	}
	if u.ChiefComplaint != nil {
		r.ChiefComplaint = *u.ChiefComplaint
	}
	if u.HistoryOfPresentIllness != nil {
		r.HistoryOfPresentIllness = *u.HistoryOfPresentIllness
	}
	if u.PhysicalExamination != nil {
		r.PhysicalExamination = *u.PhysicalExamination
	}
	if u.Assessment != nil {
		r.Assessment = *u.Assessment
	}
	if u.TreatmentPlan != nil {
		r.TreatmentPlan = *u.TreatmentPlan
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	return nil
}

// AddVitalSigns attaches a vitals entry to the draft record.
func (r *MedicalRecord) AddVitalSigns(v *VitalSigns) error {
	if err := r.guardDraft(); err != nil {
		return err
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.MedicalRecordID = r.ID
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now()
	}
	r.VitalSigns = append(r.VitalSigns, v)
	return nil
}

// AddDiagnosis attaches a diagnosis. A second primary diagnosis is rejected;
// the existing one must be unset first via SetPrimaryDiagnosis.
func (r *MedicalRecord) AddDiagnosis(d *Diagnosis) error {
	if err := r.guardDraft(); err != nil {
		return err
	}
	if d.Code == "" {
		return domainerr.InvalidArgumentf("diagnosis code is required")
	}
	if d.Description == "" {
		return domainerr.InvalidArgumentf("diagnosis description is required")
	}
	if d.IsPrimary && r.primaryDiagnosis() != nil {
		return domainerr.InvalidStatef("record already has a primary diagnosis")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.MedicalRecordID = r.ID
	if d.DiagnosedAt.IsZero() {
		d.DiagnosedAt = time.Now()
	}
	r.Diagnoses = append(r.Diagnoses, d)
	return nil
}

func (r *MedicalRecord) primaryDiagnosis() *Diagnosis {
	for _, d := range r.Diagnoses {
		if d.IsPrimary {
			return d
		}
	}
	return nil
}

// SetPrimaryDiagnosis makes the given diagnosis the single primary one,
// unsetting any other.
func (r *MedicalRecord) SetPrimaryDiagnosis(diagnosisID uuid.UUID) error {
	if err := r.guardDraft(); err != nil {
		return err
	}
	var target *Diagnosis
	for _, d := range r.Diagnoses {
		if d.ID == diagnosisID {
			target = d
			break
		}
	}
	if target == nil {
		return domainerr.NotFoundf("diagnosis not found on this record")
	}
	for _, d := range r.Diagnoses {
		d.IsPrimary = false
	}
	target.IsPrimary = true
	return nil
}

// AddPrescription attaches a prescription to the draft record.
func (r *MedicalRecord) AddPrescription(p *Prescription) error {
	if err := r.guardDraft(); err != nil {
		return err
	}
	if p.MedicationName == "" {
		return domainerr.InvalidArgumentf("medication name is required")
	}
	if p.Dosage == "" {
		return domainerr.InvalidArgumentf("dosage is required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.MedicalRecordID = r.ID
	if p.PrescribedAt.IsZero() {
		p.PrescribedAt = time.Now()
	}
	r.Prescriptions = append(r.Prescriptions, p)
	return nil
}

// AddTreatment attaches a treatment entry to the draft record.
func (r *MedicalRecord) AddTreatment(tr *TreatmentRecord) error {
	if err := r.guardDraft(); err != nil {
		return err
	}
	if tr.Name == "" {
		return domainerr.InvalidArgumentf("treatment name is required")
	}
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	tr.MedicalRecordID = r.ID
	if tr.PerformedAt.IsZero() {
		tr.PerformedAt = time.Now()
	}
	r.Treatments = append(r.Treatments, tr)
	return nil
}

// Completeness checks run in order at finalize time. Each failing check
// contributes its code to the missing list.
var completenessChecks = []struct {
	code string
	ok   func(r *MedicalRecord) bool
}{
	{"chief_complaint", func(r *MedicalRecord) bool { return r.ChiefComplaint != "" }},
	{"assessment", func(r *MedicalRecord) bool { return r.Assessment != "" }},
	{"treatment_plan", func(r *MedicalRecord) bool { return r.TreatmentPlan != "" }},
	{"diagnosis", func(r *MedicalRecord) bool { return len(r.Diagnoses) > 0 }},
	{"primary_diagnosis", func(r *MedicalRecord) bool { return r.primaryDiagnosis() != nil }},
	{"vital_signs", func(r *MedicalRecord) bool { return len(r.VitalSigns) > 0 }},
}

// MissingItems returns the completeness items the record still lacks.
func (r *MedicalRecord) MissingItems() []string {
	var missing []string
	for _, c := range completenessChecks {
		if !c.ok(r) {
			missing = append(missing, c.code)
		}
	}
	return missing
}

// Finalize locks the record after all completeness checks pass. Every
// missing item is reported in one error, not just the first.
func (r *MedicalRecord) Finalize(finalNotes *string, finalizedBy *uuid.UUID) error {
	if r.IsFinalized {
		return domainerr.InvalidStatef("medical record is already finalized")
	}
	if missing := r.MissingItems(); len(missing) > 0 {
		return domainerr.Incompletef(missing, "medical record is incomplete")
	}
	now := time.Now()
	r.IsFinalized = true
	r.FinalizedDate = &now
	r.FinalizedBy = finalizedBy
	if finalNotes != nil && *finalNotes != "" {
		header := fmt.Sprintf("--- finalized %s ---", now.Format(time.RFC3339))
		if r.Notes != "" {
			r.Notes += "\n"
		}
		r.Notes += header + "\n" + *finalNotes
	}
	r.Record("medical_record.finalized", r.ID, map[string]interface{}{
		"patient_id": r.PatientID.String(),
	})
	return nil
}

// Reopen unlocks a finalized record and clears the finalize metadata. No
// completeness requirement applies; this is an administrative escape hatch.
func (r *MedicalRecord) Reopen() error {
	if !r.IsFinalized {
		return domainerr.InvalidStatef("medical record is not finalized")
	}
	r.IsFinalized = false
	r.FinalizedDate = nil
	r.FinalizedBy = nil
	r.Record("medical_record.reopened", r.ID, nil)
	return nil
}

// HasClinicalContent reports whether the record carries any sub-entity data.
// Records with content (or finalized records) cannot be hard-deleted.
func (r *MedicalRecord) HasClinicalContent() bool {
	return len(r.VitalSigns) > 0 || len(r.Diagnoses) > 0 ||
		len(r.Prescriptions) > 0 || len(r.Treatments) > 0
}
