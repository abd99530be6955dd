package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
)

// -- Mocks --

type mockAppointmentRepo struct {
	appts   map[uuid.UUID]*Appointment
	related map[uuid.UUID]bool
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{
		appts:   make(map[uuid.UUID]*Appointment),
		related: make(map[uuid.UUID]bool),
	}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, domainerr.NotFoundf("appointment not found")
	}
	return a, nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, a *Appointment) error {
	m.appts[a.ID] = a
	return nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appts, id)
	return nil
}

func (m *mockAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockAppointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockAppointmentRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockAppointmentRepo) HasRelatedData(_ context.Context, id uuid.UUID) (bool, error) {
	return m.related[id], nil
}

type captureDispatcher struct {
	events []events.Event
}

func (d *captureDispatcher) Dispatch(_ context.Context, evts []events.Event) {
	d.events = append(d.events, evts...)
}

func newTestService() (*Service, *mockAppointmentRepo, *captureDispatcher) {
	repo := newMockAppointmentRepo()
	disp := &captureDispatcher{}
	return NewService(repo, disp), repo, disp
}

// -- Tests --

func TestCreateAppointment_DispatchesEvent(t *testing.T) {
	svc, repo, disp := newTestService()
	a, err := svc.CreateAppointment(context.Background(), uuid.New(), uuid.New(), time.Now().Add(24*time.Hour), 30, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.appts[a.ID]; !ok {
		t.Error("appointment not persisted")
	}
	if len(disp.events) != 1 || disp.events[0].Name != "appointment.scheduled" {
		t.Errorf("expected scheduled event, got %v", disp.events)
	}
}

func TestCreateAppointment_PastDateNotPersisted(t *testing.T) {
	svc, repo, _ := newTestService()
	_, err := svc.CreateAppointment(context.Background(), uuid.New(), uuid.New(), time.Now().Add(-time.Hour), 30, nil)
	if !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if len(repo.appts) != 0 {
		t.Error("invalid appointment should not be persisted")
	}
}

func TestCancelAppointment_PersistsAndDispatches(t *testing.T) {
	svc, repo, disp := newTestService()
	a, err := svc.CreateAppointment(context.Background(), uuid.New(), uuid.New(), time.Now().Add(24*time.Hour), 30, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disp.events = nil

	updated, err := svc.CancelAppointment(context.Background(), a.ID, "patient request")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", updated.Status)
	}
	if repo.appts[a.ID].Status != StatusCancelled {
		t.Error("cancellation not persisted")
	}
	if len(disp.events) != 1 || disp.events[0].Name != "appointment.cancelled" {
		t.Errorf("expected cancelled event, got %v", disp.events)
	}
}

func TestTransition_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.StartAppointment(context.Background(), uuid.New())
	if !domainerr.IsKind(err, domainerr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestTransition_InvalidStateNotPersisted(t *testing.T) {
	svc, repo, disp := newTestService()
	a, err := svc.CreateAppointment(context.Background(), uuid.New(), uuid.New(), time.Now().Add(24*time.Hour), 30, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CompleteAppointment(context.Background(), a.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	disp.events = nil

	if _, err := svc.StartAppointment(context.Background(), a.ID); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
	if repo.appts[a.ID].Status != StatusCompleted {
		t.Error("failed transition must not change persisted state")
	}
	if len(disp.events) != 0 {
		t.Error("failed transition must not dispatch events")
	}
}

func TestDeleteAppointment_BlockedByRecords(t *testing.T) {
	svc, repo, _ := newTestService()
	a, err := svc.CreateAppointment(context.Background(), uuid.New(), uuid.New(), time.Now().Add(24*time.Hour), 30, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	repo.related[a.ID] = true

	if err := svc.DeleteAppointment(context.Background(), a.ID); !domainerr.IsKind(err, domainerr.Conflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
	if _, ok := repo.appts[a.ID]; !ok {
		t.Error("blocked delete must not remove the appointment")
	}

	repo.related[a.ID] = false
	if err := svc.DeleteAppointment(context.Background(), a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.appts[a.ID]; ok {
		t.Error("appointment should be deleted")
	}
}
