package waitlist

import (
	"fmt"
	"sort"
	"time"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/models"
)

// Removals returns a specialty's monthly clock stops. The appointment table's removals
// column is used when the specialty has one; otherwise RTT-first appointments for
// removals stand in.
func Removals(appts []models.AppointmentRecord, specialty string) []period.MonthValue {
	explicit := false
	for _, a := range appts {
		if a.Specialty == specialty && a.HasRemovals {
			explicit = true
			break
		}
	}
	if explicit {
		return period.MonthlyTotals(appts, specialty,
			func(a models.AppointmentRecord) float64 { return a.Removals },
			func(a models.AppointmentRecord) bool { return a.HasRemovals })
	}
	return period.MonthlyTotals(appts, specialty,
		func(a models.AppointmentRecord) float64 { return a.ForRemovals },
		func(a models.AppointmentRecord) bool { return a.AppointmentType == models.RTTFirst })
}

// Stock returns the month-end waiting list per month. When several rows of a month carry
// the snapshot (one per appointment type) the largest is taken rather than a sum.
func Stock(appts []models.AppointmentRecord, specialty string) []period.MonthValue {
	byIdx := make(map[int]float64)
	for _, a := range appts {
		if a.Specialty != specialty || !a.HasWaitingList {
			continue
		}
		idx := models.MonthIndex(a.Month)
		if v, ok := byIdx[idx]; !ok || a.WaitingList > v {
			byIdx[idx] = a.WaitingList
		}
	}
	keys := make([]int, 0, len(byIdx))
	for k := range byIdx {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]period.MonthValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, period.MonthValue{Month: models.MonthFromIndex(k), Value: byIdx[k]})
	}
	return out
}

// HistoricPoint is one month of the historic view.
type HistoricPoint struct {
	Month       time.Time       `json:"month"`
	Referrals   float64         `json:"referrals"`
	Removals    float64         `json:"removals"`
	WaitingList models.Quantity `json:"waiting_list"`
}

// History is the historic view of one specialty.
type History struct {
	Specialty string          `json:"specialty"`
	Points    []HistoricPoint `json:"points"`
}

// Historic joins referrals, removals and the waiting-list stock by month.
func Historic(d *models.Dataset, specialty string) (*History, error) {
	refs := period.MonthlyTotals(d.Referrals, specialty, func(r models.ReferralRecord) float64 { return r.Referrals }, nil)
	rem := Removals(d.Appointments, specialty)
	stock := Stock(d.Appointments, specialty)
	if len(refs) == 0 && len(rem) == 0 && len(stock) == 0 {
		return nil, &models.InsufficientDataError{What: specialty, Detail: "no historic rows"}
	}

	points := make(map[int]*HistoricPoint)
	at := func(m time.Time) *HistoricPoint {
		idx := models.MonthIndex(m)
		p, ok := points[idx]
		if !ok {
			p = &HistoricPoint{Month: models.MonthFromIndex(idx)}
			points[idx] = p
		}
		return p
	}
	for _, mv := range refs {
		at(mv.Month).Referrals = mv.Value
	}
	for _, mv := range rem {
		at(mv.Month).Removals = mv.Value
	}
	for _, mv := range stock {
		at(mv.Month).WaitingList = models.Known(mv.Value)
	}

	h := &History{Specialty: specialty}
	for _, p := range points {
		h.Points = append(h.Points, *p)
	}
	sort.Slice(h.Points, func(i, j int) bool { return h.Points[i].Month.Before(h.Points[j].Month) })
	return h, nil
}

// LatestStock returns the last month with a waiting-list snapshot.
func (h *History) LatestStock() (HistoricPoint, bool) {
	for i := len(h.Points) - 1; i >= 0; i-- {
		if h.Points[i].WaitingList.Valid {
			return h.Points[i], true
		}
	}
	return HistoricPoint{}, false
}

// StartEstimate rolls the last observed waiting list forward to the model start at the
// baseline's average monthly net flow.
type StartEstimate struct {
	LastObservedMonth time.Time `json:"last_observed_month"`
	LastObserved      float64   `json:"last_observed"`
	MonthlyReferrals  float64   `json:"monthly_referrals"`
	MonthlyRemovals   float64   `json:"monthly_removals"`
	MonthsElapsed     int       `json:"months_elapsed"`
	Estimated         float64   `json:"estimated"`
}

// EstimateStart projects the stock to modelStart.
func EstimateStart(h *History, baseline period.BaselinePeriod, modelStart time.Time) (*StartEstimate, error) {
	last, ok := h.LatestStock()
	if !ok {
		return nil, &models.InsufficientDataError{What: h.Specialty + " waiting list", Detail: "no waiting list snapshots"}
	}
	elapsed := models.MonthIndex(modelStart) - models.MonthIndex(last.Month)
	if elapsed <= 0 {
		return nil, &models.InvalidRangeError{
			Field:  "model_start_date",
			Reason: fmt.Sprintf("%s is not after the last waiting list snapshot %s", models.FormatMonth(modelStart), models.FormatMonth(last.Month)),
		}
	}
	var refs, rems float64
	n := 0
	for _, p := range h.Points {
		if baseline.Contains(p.Month) {
			refs += p.Referrals
			rems += p.Removals
			n++
		}
	}
	if n == 0 {
		return nil, &models.InsufficientDataError{What: h.Specialty, Detail: fmt.Sprintf("no rows in baseline %s", baseline)}
	}
	e := &StartEstimate{
		LastObservedMonth: last.Month,
		LastObserved:      last.WaitingList.Value,
		MonthlyReferrals:  refs / float64(n),
		MonthlyRemovals:   rems / float64(n),
		MonthsElapsed:     elapsed,
	}
	e.Estimated = e.LastObserved + (e.MonthlyReferrals-e.MonthlyRemovals)*float64(elapsed)
	return e, nil
}
