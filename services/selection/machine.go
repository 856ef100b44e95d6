// Package selection owns what the user currently has picked: mode, day,
// time bucket and slot. State changes only through the discrete events
// below (a pick, a server response, a timer tick), never through
// incidental recomputation, so defaults cannot feed update loops.
package selection

import (
	"errors"
	"time"

	"slotline/models"
	"slotline/services/zone"

	"go.uber.org/zap"
)

// ErrModeLocked is returned when the user tries to change a mode the
// service offers in only one flavor.
var ErrModeLocked = errors.New("appointment mode cannot be changed for this service")

// HoldInvalidator tears down any live hold. The machine calls it before
// committing new selection state and never awaits the teardown.
type HoldInvalidator interface {
	Invalidate(status models.HoldStatus)
}

// Machine applies selection transitions to one session's state. It is
// constructed per event around the session's SelectionState; the state
// itself lives in the session.
type Machine struct {
	State  *models.SelectionState
	Holds  HoldInvalidator
	Logger *zap.Logger
}

func NewMachine(state *models.SelectionState, holds HoldInvalidator, logger *zap.Logger) *Machine {
	return &Machine{State: state, Holds: holds, Logger: logger}
}

// ApplySummary reconciles the state with a refreshed availability
// summary. Mode forcing and the day default follow the server; a mode
// drop or a vanished day clears everything downstream of it.
func (m *Machine) ApplySummary(summary *models.AvailabilitySummary, loc *time.Location, now time.Time) {
	// Single-mode services force that mode and lock it.
	if len(summary.AllowedModes) == 1 {
		if m.State.Mode != summary.AllowedModes[0] {
			m.invalidateHold()
			m.clearDownstreamOfMode()
			m.State.Mode = summary.AllowedModes[0]
		}
		m.State.ModeForced = true
	} else {
		m.State.ModeForced = false
		if m.State.Mode != "" && !summary.HasMode(m.State.Mode) {
			// The refresh dropped our mode; switch to the remaining one.
			m.invalidateHold()
			m.clearDownstreamOfMode()
			if len(summary.AllowedModes) > 0 {
				m.State.Mode = summary.AllowedModes[0]
			}
		}
	}
	if m.State.Mode == "" && len(summary.AllowedModes) > 0 {
		m.State.Mode = summary.AllowedModes[0]
	}

	// Day default: the server list's first entry, else "today" in the
	// resolved zone. Never a hard-coded locale fallback.
	if m.State.SelectedDay == "" || !dayInList(m.State.SelectedDay, summary.Days) {
		if m.State.SelectedDay != "" {
			// The previously selected day vanished from the horizon.
			m.invalidateHold()
			m.clearSlot()
		}
		m.State.SelectedDay = defaultDay(summary.Days, loc, now)
	}
}

// PickMode is the user switching between in-person and mobile.
func (m *Machine) PickMode(mode models.AppointmentMode) error {
	if m.State.ModeForced {
		return ErrModeLocked
	}
	if mode == m.State.Mode {
		return nil
	}
	m.invalidateHold()
	m.clearDownstreamOfMode()
	m.State.Mode = mode
	return nil
}

// PickDay is the user choosing a calendar day.
func (m *Machine) PickDay(date string) {
	if date == m.State.SelectedDay {
		return
	}
	m.invalidateHold()
	m.clearSlot()
	m.State.SelectedDay = date
}

// PickBucket is the user explicitly choosing a time-of-day period.
func (m *Machine) PickBucket(bucket models.TimeBucket) {
	if bucket == m.State.SelectedBucket {
		m.State.BucketExplicit = true
		return
	}
	if m.State.SelectedSlot != nil {
		m.invalidateHold()
		m.clearSlot()
	}
	m.State.SelectedBucket = bucket
	m.State.BucketExplicit = true
}

// PickSlot is the user choosing a concrete slot. Any existing hold is
// invalidated first, unconditionally; the server's hold-to-slot binding
// is exact and a stale hold must never accompany new selection state.
func (m *Machine) PickSlot(instant time.Time) {
	m.invalidateHold()
	t := instant
	m.State.SelectedSlot = &t
}

// ApplySlots reconciles the state with a freshly fetched slot list for
// the selected day: bucket auto-correction and dropping a selected slot
// the server no longer offers.
func (m *Machine) ApplySlots(slots []time.Time, loc *time.Location) {
	partition := PartitionSlots(slots, loc)
	if corrected, changed := CorrectBucket(m.State.SelectedBucket, partition); changed {
		m.State.SelectedBucket = corrected
		m.State.BucketExplicit = false
	}

	if m.State.SelectedSlot != nil && !slotInList(*m.State.SelectedSlot, slots) {
		m.invalidateHold()
		m.clearSlot()
	}
}

// ClearSelection drops the slot (and hold) without touching mode or day,
// e.g. after an expiry.
func (m *Machine) ClearSelection() {
	m.clearSlot()
}

func (m *Machine) invalidateHold() {
	if m.Holds != nil {
		m.Holds.Invalidate(models.HoldStatusSuperseded)
	}
}

func (m *Machine) clearDownstreamOfMode() {
	m.State.SelectedDay = ""
	m.clearSlot()
}

func (m *Machine) clearSlot() {
	m.State.SelectedSlot = nil
}

func dayInList(date string, days []models.DaySummary) bool {
	for _, d := range days {
		if d.Date == date {
			return true
		}
	}
	return false
}

func defaultDay(days []models.DaySummary, loc *time.Location, now time.Time) string {
	if len(days) > 0 {
		return days[0].Date
	}
	return zone.Today(now, loc)
}

func slotInList(slot time.Time, slots []time.Time) bool {
	for _, s := range slots {
		if s.Equal(slot) {
			return true
		}
	}
	return false
}
