package capacity

import (
	"fmt"

	"outpatient_capacity/pkg/models"
)

// =============================================================================
// DEMAND VS FIRST-APPOINTMENT ASSESSMENT
// =============================================================================

// Status classifies forecast demand against RTT-first capacity.
type Status string

const (
	Insufficient                Status = "insufficient"
	MeetableWithRateImprovement Status = "meetable_with_rate_improvement"
	Sufficient                  Status = "sufficient"
)

// Assessment compares forecast referrals with attended and available RTT-first slots.
type Assessment struct {
	Demand    float64 `json:"demand"`
	Attended  float64 `json:"attended"`
	Available float64 `json:"available"`
	Status    Status  `json:"status"`
	Message   string  `json:"message"`
}

// Assess places demand against the baseline: above available slots is insufficient even
// at full utilisation with no DNAs, above attended is recoverable by better rates.
func Assess(demand float64, f *Figures) Assessment {
	first := f.Figure(models.RTTFirst)
	a := Assessment{Demand: demand, Attended: first.Attended, Available: first.RequiredAvailable}
	switch {
	case demand > a.Available:
		a.Status = Insufficient
		a.Message = "demand exceeds available capacity even at 100% utilisation and no DNAs; the number of appointments needs to increase"
	case demand > a.Attended:
		a.Status = MeetableWithRateImprovement
		a.Message = "demand can be met if utilisation increases or the DNA rate falls"
	default:
		a.Status = Sufficient
		a.Message = "capacity is sufficient and the waiting list is expected to reduce"
	}
	return a
}

// =============================================================================
// SESSION-BASED STATUS
// =============================================================================

// SessionHours is the length of one clinic session.
const SessionHours = 4

// SessionStatus is the summary-table capacity verdict.
type SessionStatus string

const (
	Surplus                     SessionStatus = "surplus"
	SufficientSessions          SessionStatus = "sufficient"
	MoreSessionsWouldMeetDemand SessionStatus = "more_sessions_would_meet_demand"
	NotMeetingCapacity          SessionStatus = "not_meeting_capacity"
	SessionStatusUnknown        SessionStatus = "unknown"
)

// Sessions are baseline session counters for a specialty.
type Sessions struct {
	Held            float64 `json:"sessions"`
	Cancelled       float64 `json:"cancelled_sessions"`
	MinutesUtilised float64 `json:"minutes_utilised"`
}

// BookableMinutes is every held or cancelled session at full length.
func (s Sessions) BookableMinutes() float64 {
	return (s.Held + s.Cancelled) * SessionHours * 60
}

// ClassifySessions compares 12-month referrals and removals; when removals fall short
// it checks whether the baseline session minutes on offer cover the minutes used scaled
// up to a year by scalingFactor. hasSessions false means the counters were absent.
func ClassifySessions(referrals12, removals12 float64, s Sessions, hasSessions bool, scalingFactor float64) SessionStatus {
	switch {
	case removals12 > referrals12:
		return Surplus
	case removals12 == referrals12:
		return SufficientSessions
	case !hasSessions:
		return SessionStatusUnknown
	case s.BookableMinutes() >= s.MinutesUtilised*scalingFactor:
		return MoreSessionsWouldMeetDemand
	default:
		return NotMeetingCapacity
	}
}

// Label is the human text for a session status.
func (s SessionStatus) Label() string {
	switch s {
	case Surplus:
		return "Surplus capacity, waiting list will reduce"
	case SufficientSessions:
		return "Sufficient capacity to meet demand"
	case MoreSessionsWouldMeetDemand:
		return "Insufficient capacity but more sessions would meet demand"
	case NotMeetingCapacity:
		return "Not meeting capacity, waiting list expected to grow"
	case SessionStatusUnknown:
		return "Session data not available"
	}
	return fmt.Sprintf("status(%s)", string(s))
}
