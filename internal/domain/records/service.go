package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
)

type Service struct {
	records    MedicalRecordRepository
	dispatcher events.Dispatcher
}

func NewService(records MedicalRecordRepository, dispatcher events.Dispatcher) *Service {
	return &Service{records: records, dispatcher: dispatcher}
}

func (s *Service) CreateRecord(ctx context.Context, patientID, doctorID uuid.UUID, appointmentID *uuid.UUID) (*MedicalRecord, error) {
	r, err := NewMedicalRecord(patientID, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.records.Create(ctx, r); err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, r.TakeEvents())
	return r, nil
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListRecordsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.records.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListRecordsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.records.ListByDoctor(ctx, doctorID, limit, offset)
}

// withRecord loads the record and applies fn in one transaction, so the
// finalized-state check and the write it guards share a snapshot. fn must
// use the context it receives for any repository call. Events recorded
// during the change are dispatched after the transaction commits.
func (s *Service) withRecord(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, r *MedicalRecord) error) (*MedicalRecord, error) {
	var r *MedicalRecord
	err := s.records.InTx(ctx, func(txCtx context.Context) error {
		var err error
		r, err = s.records.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		return fn(txCtx, r)
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, r.TakeEvents())
	return r, nil
}

func (s *Service) UpdateSections(ctx context.Context, id uuid.UUID, u SectionUpdate) (*MedicalRecord, error) {
	return s.withRecord(ctx, id, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.UpdateSections(u); err != nil {
			return err
		}
		return s.records.Update(txCtx, r)
	})
}

func (s *Service) AddVitalSigns(ctx context.Context, recordID uuid.UUID, v *VitalSigns) (*VitalSigns, error) {
	_, err := s.withRecord(ctx, recordID, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.AddVitalSigns(v); err != nil {
			return err
		}
		return s.records.AddVitalSigns(txCtx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) AddDiagnosis(ctx context.Context, recordID uuid.UUID, d *Diagnosis) (*Diagnosis, error) {
	_, err := s.withRecord(ctx, recordID, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.AddDiagnosis(d); err != nil {
			return err
		}
		return s.records.AddDiagnosis(txCtx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) SetPrimaryDiagnosis(ctx context.Context, recordID, diagnosisID uuid.UUID) (*MedicalRecord, error) {
	return s.withRecord(ctx, recordID, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.SetPrimaryDiagnosis(diagnosisID); err != nil {
			return err
		}
		return s.records.SetPrimaryDiagnosis(txCtx, recordID, diagnosisID)
	})
}

func (s *Service) AddPrescription(ctx context.Context, recordID uuid.UUID, p *Prescription) (*Prescription, error) {
	_, err := s.withRecord(ctx, recordID, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.AddPrescription(p); err != nil {
			return err
		}
		return s.records.AddPrescription(txCtx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) AddTreatment(ctx context.Context, recordID uuid.UUID, tr *TreatmentRecord) (*TreatmentRecord, error) {
	_, err := s.withRecord(ctx, recordID, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.AddTreatment(tr); err != nil {
			return err
		}
		return s.records.AddTreatment(txCtx, tr)
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (s *Service) FinalizeRecord(ctx context.Context, id uuid.UUID, finalNotes *string, finalizedBy *uuid.UUID) (*MedicalRecord, error) {
	return s.withRecord(ctx, id, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.Finalize(finalNotes, finalizedBy); err != nil {
			return err
		}
		return s.records.Update(txCtx, r)
	})
}

func (s *Service) ReopenRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.withRecord(ctx, id, func(txCtx context.Context, r *MedicalRecord) error {
		if err := r.Reopen(); err != nil {
			return err
		}
		return s.records.Update(txCtx, r)
	})
}

// DeleteRecord hard-deletes a draft record with no clinical content.
// Finalized records and records carrying vitals, diagnoses, prescriptions or
// treatments are protected.
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if r.IsFinalized {
		return domainerr.Conflictf("finalized records cannot be deleted; reopen and archive instead")
	}
	if r.HasClinicalContent() {
		return domainerr.Conflictf("record has clinical content; archive it instead of deleting")
	}
	return s.records.Delete(ctx, id)
}
