package models

import "time"

// DaySummary is one entry of the bookable horizon: a zone-less calendar
// day (formatted "2006-01-02") and how many open slots it carries.
type DaySummary struct {
	Date          string `json:"date"`
	OpenSlotCount int    `json:"openSlotCount"`
}

// ProfessionalRef is the descriptor the backend returns for the primary
// and any secondary professionals in a multi-professional view.
type ProfessionalRef struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	ZoneID string `json:"timezone,omitempty"`
}

// AvailabilitySummary is the backend's answer for one SelectionKey.
// The echoed ServiceID/Mode and the resolved ZoneID are authoritative
// over whatever the caller asked for.
type AvailabilitySummary struct {
	ZoneID           string            `json:"timezone"`
	ServiceID        string            `json:"serviceId"`
	Mode             AppointmentMode   `json:"appointmentMode"`
	AllowedModes     []AppointmentMode `json:"allowedModes"`
	Days             []DaySummary      `json:"days"`
	Primary          ProfessionalRef   `json:"professional"`
	Secondaries      []ProfessionalRef `json:"secondaryProfessionals,omitempty"`
	WaitlistEligible bool              `json:"waitlistEligible"`
}

// HasMode reports whether mode is in the allowed set.
func (s AvailabilitySummary) HasMode(mode AppointmentMode) bool {
	for _, m := range s.AllowedModes {
		if m == mode {
			return true
		}
	}
	return false
}

// DaySlots holds the open slot instants for one professional on one day.
// Slots are absolute instants; they carry no embedded zone.
type DaySlots struct {
	ZoneID string      `json:"timezone,omitempty"`
	Slots  []time.Time `json:"slots"`
}
