package models

import (
	"time"
)

// AppointmentType is the closed set of appointment categories.
type AppointmentType string

const (
	RTTFirst    AppointmentType = "RTT First"
	RTTFollowUp AppointmentType = "RTT Follow-up"
	NonRTT      AppointmentType = "Non-RTT"
)

// AppointmentTypes lists the categories in display order.
var AppointmentTypes = []AppointmentType{RTTFirst, RTTFollowUp, NonRTT}

// ParseAppointmentType accepts only the three fixed labels.
func ParseAppointmentType(s string) (AppointmentType, bool) {
	for _, t := range AppointmentTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// ReferralRecord is one row per (month, specialty, priority).
type ReferralRecord struct {
	Month     time.Time `json:"month"` // month-end, UTC
	Specialty string    `json:"specialty"`
	Priority  string    `json:"priority,omitempty"`
	Referrals float64   `json:"referrals"`
}

// AppointmentRecord is one row per (month, specialty, appointment type).
type AppointmentRecord struct {
	Month           time.Time       `json:"month"` // month-end, UTC
	Specialty       string          `json:"specialty"`
	AppointmentType AppointmentType `json:"appointment_type"`

	Attended    float64 `json:"appointments_attended"`
	ForRemovals float64 `json:"appointments_for_removals"`

	// Optional columns. The Has* flags record whether the source table carried them.
	Removals          float64 `json:"removals,omitempty"`
	WaitingList       float64 `json:"waiting_list,omitempty"` // end-of-month stock
	Sessions          float64 `json:"sessions,omitempty"`
	CancelledSessions float64 `json:"cancelled_sessions,omitempty"`
	MinutesUtilised   float64 `json:"minutes_utilised,omitempty"`
	DNARate           float64 `json:"did_not_attend_rate,omitempty"`

	HasRemovals    bool `json:"-"`
	HasWaitingList bool `json:"-"`
	HasSessions    bool `json:"-"`
	HasDNARate     bool `json:"-"`
}

// Period and SpecialtyName let the aggregator treat both tables alike.
func (r ReferralRecord) Period() time.Time     { return r.Month }
func (r ReferralRecord) SpecialtyName() string { return r.Specialty }

func (r AppointmentRecord) Period() time.Time     { return r.Month }
func (r AppointmentRecord) SpecialtyName() string { return r.Specialty }

// Dataset holds the two read-only source tables.
type Dataset struct {
	Referrals    []ReferralRecord
	Appointments []AppointmentRecord
}

// Specialties returns the distinct specialties of the referral table in first-seen order.
func (d *Dataset) Specialties() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.Referrals {
		if !seen[r.Specialty] {
			seen[r.Specialty] = true
			out = append(out, r.Specialty)
		}
	}
	return out
}

// HasSpecialty reports whether the referral table contains the specialty.
func (d *Dataset) HasSpecialty(specialty string) bool {
	for _, r := range d.Referrals {
		if r.Specialty == specialty {
			return true
		}
	}
	return false
}

// Priorities returns the distinct non-empty priorities for a specialty, first-seen order.
func (d *Dataset) Priorities(specialty string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.Referrals {
		if r.Specialty != specialty || r.Priority == "" || seen[r.Priority] {
			continue
		}
		seen[r.Priority] = true
		out = append(out, r.Priority)
	}
	return out
}
