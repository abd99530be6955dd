package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
	staff    StaffRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository, staff StaffRepository) *Service {
	return &Service{patients: patients, doctors: doctors, staff: staff}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return domainerr.InvalidArgumentf("first_name and last_name are required")
	}
	if p.MRN == "" {
		p.MRN = newMRN()
	}
	p.Active = true
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, mrn)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return domainerr.InvalidArgumentf("first_name and last_name are required")
	}
	return s.patients.Update(ctx, p)
}

// DeletePatient hard-deletes a patient with no clinical or financial history.
// The guard and the delete are separate statements; the race window is
// accepted for this admin-only operation.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return err
	}
	related, err := s.patients.HasRelatedData(ctx, id)
	if err != nil {
		return err
	}
	if related {
		return domainerr.Conflictf("patient has appointments, records or bills; deactivate instead of deleting")
	}
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, name string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, name, limit, offset)
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return domainerr.InvalidArgumentf("first_name and last_name are required")
	}
	if d.LicenseNumber == "" {
		return domainerr.InvalidArgumentf("license_number is required")
	}
	d.Active = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return domainerr.InvalidArgumentf("first_name and last_name are required")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	if _, err := s.doctors.GetByID(ctx, id); err != nil {
		return err
	}
	related, err := s.doctors.HasRelatedData(ctx, id)
	if err != nil {
		return err
	}
	if related {
		return domainerr.Conflictf("doctor has appointments or records; deactivate instead of deleting")
	}
	return s.doctors.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// -- Staff --

func (s *Service) CreateStaff(ctx context.Context, m *Staff) error {
	if m.FirstName == "" || m.LastName == "" {
		return domainerr.InvalidArgumentf("first_name and last_name are required")
	}
	if m.Role == "" {
		return domainerr.InvalidArgumentf("role is required")
	}
	m.Active = true
	return s.staff.Create(ctx, m)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) UpdateStaff(ctx context.Context, m *Staff) error {
	if m.FirstName == "" || m.LastName == "" {
		return domainerr.InvalidArgumentf("first_name and last_name are required")
	}
	return s.staff.Update(ctx, m)
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	if _, err := s.staff.GetByID(ctx, id); err != nil {
		return err
	}
	related, err := s.staff.HasRelatedData(ctx, id)
	if err != nil {
		return err
	}
	if related {
		return domainerr.Conflictf("staff member has appointments or records; deactivate instead of deleting")
	}
	return s.staff.Delete(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, limit, offset)
}
