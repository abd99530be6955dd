package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
)

func newTestAppointment(t *testing.T, scheduled time.Time) *Appointment {
	t.Helper()
	a, err := NewAppointment(uuid.New(), uuid.New(), scheduled, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.TakeEvents()
	return a
}

func TestNewAppointment_Defaults(t *testing.T) {
	a, err := NewAppointment(uuid.New(), uuid.New(), time.Now().Add(24*time.Hour), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", a.Status)
	}
	if a.DurationMinutes != DefaultDurationMinutes {
		t.Errorf("expected default duration, got %d", a.DurationMinutes)
	}
	if a.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
}

func TestNewAppointment_PastDateRejected(t *testing.T) {
	_, err := NewAppointment(uuid.New(), uuid.New(), time.Now().Add(-time.Hour), 30, nil)
	if !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestNewAppointment_NegativeDuration(t *testing.T) {
	_, err := NewAppointment(uuid.New(), uuid.New(), time.Now().Add(time.Hour), -15, nil)
	if !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestReschedule_Scheduled(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	newDate := time.Now().Add(48 * time.Hour)
	if err := a.Reschedule(newDate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.ScheduledDate.Equal(newDate) {
		t.Error("scheduled date not updated")
	}
	evts := a.TakeEvents()
	if len(evts) != 1 || evts[0].Name != "appointment.rescheduled" {
		t.Errorf("expected rescheduled event, got %v", evts)
	}
}

func TestReschedule_PastDateRejected(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	err := a.Reschedule(time.Now().Add(-time.Hour))
	if !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestReschedule_NotScheduled(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := a.Reschedule(time.Now().Add(48 * time.Hour))
	if !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestUpdateDuration(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.UpdateDuration(45); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.DurationMinutes != 45 {
		t.Errorf("expected 45, got %d", a.DurationMinutes)
	}
	if err := a.UpdateDuration(0); !domainerr.IsKind(err, domainerr.InvalidArgument) {
		t.Errorf("expected InvalidArgument for zero duration, got %v", err)
	}
}

func TestCancel_RecordsReason(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.Cancel("patient request"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", a.Status)
	}
	if a.CancellationReason == nil || *a.CancellationReason != "patient request" {
		t.Error("cancellation reason not recorded")
	}
	evts := a.TakeEvents()
	if len(evts) != 1 || evts[0].Name != "appointment.cancelled" {
		t.Errorf("expected cancelled event, got %v", evts)
	}
}

func TestCancel_CompletedRejected(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.Complete(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Cancel("too late"); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestStart_OnlyFromScheduled(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusInProgress {
		t.Errorf("expected in_progress, got %s", a.Status)
	}
	if err := a.Start(); !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("expected InvalidState on second start, got %v", err)
	}
}

func TestComplete_FromInProgress(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	notes := "visit went fine"
	if err := a.Complete(&notes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", a.Status)
	}
	if a.Notes == nil || *a.Notes != notes {
		t.Error("notes not recorded")
	}
}

func TestComplete_DirectFromScheduled(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(24*time.Hour))
	if err := a.Complete(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", a.Status)
	}
}

func TestMarkNoShow_FutureRejected(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(48*time.Hour))
	err := a.MarkNoShow()
	if !domainerr.IsKind(err, domainerr.InvalidState) {
		t.Errorf("expected InvalidState for future appointment, got %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status changed on failed transition: %s", a.Status)
	}
}

func TestMarkNoShow_TodayAllowed(t *testing.T) {
	a := newTestAppointment(t, time.Now().Add(time.Minute))
	if err := a.MarkNoShow(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusNoShow {
		t.Errorf("expected no_show, got %s", a.Status)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	terminal := func(prep func(a *Appointment) error) *Appointment {
		a := newTestAppointment(t, time.Now().Add(24*time.Hour))
		if err := prep(a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		a.TakeEvents()
		return a
	}

	cases := map[string]*Appointment{
		StatusCompleted: terminal(func(a *Appointment) error { return a.Complete(nil) }),
		StatusCancelled: terminal(func(a *Appointment) error { return a.Cancel("x") }),
	}
	for status, a := range cases {
		if err := a.Start(); !domainerr.IsKind(err, domainerr.InvalidState) {
			t.Errorf("%s: Start should fail, got %v", status, err)
		}
		if status != StatusCompleted {
			if err := a.Complete(nil); !domainerr.IsKind(err, domainerr.InvalidState) {
				t.Errorf("%s: Complete should fail, got %v", status, err)
			}
		}
		if err := a.Reschedule(time.Now().Add(time.Hour)); !domainerr.IsKind(err, domainerr.InvalidState) {
			t.Errorf("%s: Reschedule should fail, got %v", status, err)
		}
		if err := a.MarkNoShow(); !domainerr.IsKind(err, domainerr.InvalidState) {
			t.Errorf("%s: MarkNoShow should fail, got %v", status, err)
		}
		if err := a.UpdateDuration(15); !domainerr.IsKind(err, domainerr.InvalidState) {
			t.Errorf("%s: UpdateDuration should fail, got %v", status, err)
		}
		if len(a.TakeEvents()) != 0 {
			t.Errorf("%s: failed transitions must not record events", status)
		}
	}
}
