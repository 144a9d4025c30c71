package waitlist

import (
	"errors"
	"testing"
	"time"

	"outpatient_capacity/pkg/core/period"
	"outpatient_capacity/pkg/models"
)

func month(y int, m time.Month) time.Time {
	return models.MonthEnd(time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
}

func TestProject(t *testing.T) {
	p, err := Project(Inputs{Start: 500, Additions: 1200, AvailableRTTFirst: 1000, OtherRemovals: 100})
	if err != nil {
		t.Fatal(err)
	}
	if p.TreatmentRemovals != 1000 || p.End != 600 || len(p.Warnings) != 0 {
		t.Fatalf("projection = %+v", p)
	}
	if p.Change() != 100 {
		t.Fatalf("change = %f", p.Change())
	}
}

func TestProject_Closure(t *testing.T) {
	for _, start := range []float64{0, 250} {
		for _, avail := range []float64{0, 400, 5000} {
			for _, other := range []float64{0, 30} {
				prev := -1e18
				for adds := 0.0; adds <= 1000; adds += 125 {
					p, err := Project(Inputs{Start: start, Additions: adds, AvailableRTTFirst: avail, OtherRemovals: other})
					if err != nil {
						t.Fatal(err)
					}
					treated := avail
					if adds < treated {
						treated = adds
					}
					if want := start + adds - treated - other; p.End != want {
						t.Fatalf("end = %f, want %f", p.End, want)
					}
					if p.End < prev {
						t.Fatalf("end fell from %f to %f as additions rose", prev, p.End)
					}
					prev = p.End
				}
			}
		}
	}
}

func TestProject_NegativeEndWarns(t *testing.T) {
	p, err := Project(Inputs{Start: 10, Additions: 100, AvailableRTTFirst: 100, OtherRemovals: 50})
	if err != nil {
		t.Fatal(err)
	}
	if p.End != -40 {
		t.Fatalf("end = %f, want -40 (not clamped)", p.End)
	}
	if len(p.Warnings) != 1 {
		t.Fatalf("expected a warning, got %v", p.Warnings)
	}
}

func TestProject_RejectsNegativeInputs(t *testing.T) {
	if _, err := Project(Inputs{Start: -1}); !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("got %v", err)
	}
}

func TestWaterfall(t *testing.T) {
	p, _ := Project(Inputs{Start: 500, Additions: 1200, AvailableRTTFirst: 1000, OtherRemovals: 100})
	steps := p.Waterfall()
	want := []float64{500, 1700, 700, 600, 600}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps", len(steps))
	}
	for i, s := range steps {
		if s.Running != want[i] {
			t.Errorf("step %d (%s) running = %f, want %f", i, s.Label, s.Running, want[i])
		}
	}
	if steps[2].Delta != -1000 || steps[4].Kind != Total {
		t.Errorf("unexpected steps %+v", steps)
	}
}

func dataset(explicitRemovals bool) *models.Dataset {
	d := &models.Dataset{}
	for i, wl := range []float64{1000, 1010, 1030} {
		m := models.AddMonths(month(2024, time.January), i)
		d.Referrals = append(d.Referrals, models.ReferralRecord{Month: m, Specialty: "ENT", Referrals: 100})
		first := models.AppointmentRecord{Month: m, Specialty: "ENT", AppointmentType: models.RTTFirst, ForRemovals: 80, WaitingList: wl, HasWaitingList: true}
		fu := models.AppointmentRecord{Month: m, Specialty: "ENT", AppointmentType: models.RTTFollowUp, ForRemovals: 40, WaitingList: wl, HasWaitingList: true}
		if explicitRemovals {
			first.Removals, first.HasRemovals = 90, true
		}
		d.Appointments = append(d.Appointments, first, fu)
	}
	return d
}

func TestHistoric(t *testing.T) {
	h, err := Historic(dataset(false), "ENT")
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Points) != 3 {
		t.Fatalf("got %d points", len(h.Points))
	}
	p := h.Points[2]
	if p.Referrals != 100 || p.Removals != 80 || p.WaitingList.Value != 1030 {
		t.Fatalf("last point = %+v (stock must not be summed across types)", p)
	}

	h, _ = Historic(dataset(true), "ENT")
	if h.Points[0].Removals != 90 {
		t.Fatalf("explicit removals column ignored: %+v", h.Points[0])
	}

	if _, err := Historic(dataset(false), "Urology"); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("got %v", err)
	}
}

func TestEstimateStart(t *testing.T) {
	h, _ := Historic(dataset(false), "ENT")
	baseline := period.BaselinePeriod{Start: month(2024, time.January), End: month(2024, time.March)}
	e, err := EstimateStart(h, baseline, month(2024, time.June))
	if err != nil {
		t.Fatal(err)
	}
	// Net +20 a month for three months after March's 1030.
	if e.MonthsElapsed != 3 || e.Estimated != 1090 {
		t.Fatalf("estimate = %+v", e)
	}
	if _, err := EstimateStart(h, baseline, month(2024, time.March)); !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("got %v", err)
	}
}
