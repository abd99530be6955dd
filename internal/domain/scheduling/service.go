package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
)

type Service struct {
	appointments AppointmentRepository
	dispatcher   events.Dispatcher
}

func NewService(appointments AppointmentRepository, dispatcher events.Dispatcher) *Service {
	return &Service{appointments: appointments, dispatcher: dispatcher}
}

func (s *Service) CreateAppointment(ctx context.Context, patientID, doctorID uuid.UUID, scheduledDate time.Time, durationMinutes int, notes *string) (*Appointment, error) {
	a, err := NewAppointment(patientID, doctorID, scheduledDate, durationMinutes, notes)
	if err != nil {
		return nil, err
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, a.TakeEvents())
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}

// transition loads the appointment, applies one mutation, persists it and
// dispatches the recorded events.
func (s *Service) transition(ctx context.Context, id uuid.UUID, mutate func(*Appointment) error) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(a); err != nil {
		return nil, err
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, a.TakeEvents())
	return a, nil
}

func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, newDate time.Time) (*Appointment, error) {
	return s.transition(ctx, id, func(a *Appointment) error { return a.Reschedule(newDate) })
}

func (s *Service) UpdateAppointmentDuration(ctx context.Context, id uuid.UUID, minutes int) (*Appointment, error) {
	return s.transition(ctx, id, func(a *Appointment) error { return a.UpdateDuration(minutes) })
}

func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.transition(ctx, id, func(a *Appointment) error { return a.Cancel(reason) })
}

func (s *Service) StartAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, func(a *Appointment) error { return a.Start() })
}

func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID, notes *string) (*Appointment, error) {
	return s.transition(ctx, id, func(a *Appointment) error { return a.Complete(notes) })
}

func (s *Service) MarkAppointmentNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, func(a *Appointment) error { return a.MarkNoShow() })
}

// DeleteAppointment hard-deletes an appointment unless clinical records
// reference it. The existence check and the delete run without a lock; a
// record created in between survives with a dangling reference.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if _, err := s.appointments.GetByID(ctx, id); err != nil {
		return err
	}
	related, err := s.appointments.HasRelatedData(ctx, id)
	if err != nil {
		return err
	}
	if related {
		return domainerr.Conflictf("appointment has medical records; cancel it instead of deleting")
	}
	return s.appointments.Delete(ctx, id)
}
