package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicore/internal/domain/domainerr"
	"github.com/clinicore/clinicore/internal/platform/events"
)

// Appointment statuses. Scheduled may move to InProgress, Cancelled, NoShow
// or directly to Completed; InProgress may only move to Completed. Completed,
// Cancelled and NoShow are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

const DefaultDurationMinutes = 30

// Appointment maps to the appointment table. Lifecycle fields change only
// through the transition methods below; services never assign them directly.
type Appointment struct {
	events.Recorder `json:"-"`

	ID                 uuid.UUID  `db:"id" json:"id"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ScheduledDate      time.Time  `db:"scheduled_date" json:"scheduled_date"`
	DurationMinutes    int        `db:"duration_minutes" json:"duration_minutes"`
	Status             string     `db:"status" json:"status"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// NewAppointment creates a Scheduled appointment. The scheduled date must be
// strictly in the future and the duration positive (zero defaults to 30).
func NewAppointment(patientID, doctorID uuid.UUID, scheduledDate time.Time, durationMinutes int, notes *string) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("patient_id is required")
	}
	if doctorID == uuid.Nil {
		return nil, domainerr.InvalidArgumentf("doctor_id is required")
	}
	if !scheduledDate.After(time.Now()) {
		return nil, domainerr.InvalidArgumentf("scheduled date must be in the future")
	}
	if durationMinutes == 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if durationMinutes < 0 {
		return nil, domainerr.InvalidArgumentf("duration must be positive")
	}
	a := &Appointment{
		ID:              uuid.New(),
		PatientID:       patientID,
		DoctorID:        doctorID,
		ScheduledDate:   scheduledDate,
		DurationMinutes: durationMinutes,
		Status:          StatusScheduled,
		Notes:           notes,
	}
	a.Record("appointment.scheduled", a.ID, map[string]interface{}{
		"patient_id":     patientID.String(),
		"doctor_id":      doctorID.String(),
		"scheduled_date": scheduledDate,
	})
	return a, nil
}

func (a *Appointment) isTerminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusCancelled || a.Status == StatusNoShow
}

// Reschedule moves a Scheduled appointment to a new future date.
func (a *Appointment) Reschedule(newDate time.Time) error {
	if a.Status != StatusScheduled {
		return domainerr.InvalidStatef("only scheduled appointments can be rescheduled (status %s)", a.Status)
	}
	if !newDate.After(time.Now()) {
		return domainerr.InvalidArgumentf("new scheduled date must be in the future")
	}
	old := a.ScheduledDate
	a.ScheduledDate = newDate
	a.Record("appointment.rescheduled", a.ID, map[string]interface{}{
		"previous_date": old,
		"new_date":      newDate,
	})
	return nil
}

// UpdateDuration changes the expected length of the visit.
func (a *Appointment) UpdateDuration(minutes int) error {
	if a.isTerminal() {
		return domainerr.InvalidStatef("appointment is %s", a.Status)
	}
	if minutes <= 0 {
		return domainerr.InvalidArgumentf("duration must be positive")
	}
	a.DurationMinutes = minutes
	return nil
}

// Cancel records the reason and moves to Cancelled. Completed and already
// cancelled appointments cannot be cancelled.
func (a *Appointment) Cancel(reason string) error {
	if a.Status == StatusCompleted {
		return domainerr.InvalidStatef("completed appointments cannot be cancelled")
	}
	if a.Status == StatusCancelled {
		return domainerr.InvalidStatef("appointment is already cancelled")
	}
	if a.Status == StatusNoShow {
		return domainerr.InvalidStatef("appointment is %s", a.Status)
	}
	a.Status = StatusCancelled
	a.CancellationReason = &reason
	a.Record("appointment.cancelled", a.ID, map[string]interface{}{"reason": reason})
	return nil
}

// Start moves a Scheduled appointment to InProgress.
func (a *Appointment) Start() error {
	if a.Status != StatusScheduled {
		return domainerr.InvalidStatef("only scheduled appointments can be started (status %s)", a.Status)
	}
	a.Status = StatusInProgress
	a.Record("appointment.started", a.ID, nil)
	return nil
}

// Complete finishes the visit. Direct completion from Scheduled is allowed
// for walk-through visits that were never explicitly started.
func (a *Appointment) Complete(notes *string) error {
	if a.Status != StatusScheduled && a.Status != StatusInProgress {
		return domainerr.InvalidStatef("appointment cannot be completed from status %s", a.Status)
	}
	a.Status = StatusCompleted
	if notes != nil {
		a.Notes = notes
	}
	a.Record("appointment.completed", a.ID, nil)
	return nil
}

// MarkNoShow flags a missed appointment. Only Scheduled appointments whose
// date has arrived can be marked; a future appointment is not yet a no-show.
func (a *Appointment) MarkNoShow() error {
	if a.Status != StatusScheduled {
		return domainerr.InvalidStatef("only scheduled appointments can be marked as no-show (status %s)", a.Status)
	}
	today := time.Now()
	y, m, d := a.ScheduledDate.Date()
	ty, tm, td := today.Date()
	if time.Date(y, m, d, 0, 0, 0, 0, time.UTC).After(time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)) {
		return domainerr.InvalidStatef("cannot mark future appointments as no-show")
	}
	a.Status = StatusNoShow
	a.Record("appointment.no_show", a.ID, nil)
	return nil
}
