package ingest

import (
	"fmt"
	"sort"
	"strings"

	"outpatient_capacity/pkg/models"
)

// Referrals decodes a referral table. Rows repeating a (month, specialty, priority) key
// are rejected.
func Referrals(t *Table) ([]models.ReferralRecord, error) {
	ix, err := Resolve(t, ReferralColumns)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]int)
	out := make([]models.ReferralRecord, 0, len(t.Rows))
	for i, cells := range t.Rows {
		r := row{table: t.Name, line: i + 2, cells: cells, ix: ix}
		if blank(cells) {
			continue
		}
		m, err := r.month()
		if err != nil {
			return nil, err
		}
		v, _, err := r.count("referrals")
		if err != nil {
			return nil, err
		}
		rec := models.ReferralRecord{Month: m, Specialty: r.text("specialty"), Priority: r.text("priority"), Referrals: v}
		if rec.Specialty == "" {
			return nil, r.fail("specialty", "is blank")
		}
		key := fmt.Sprintf("%s|%s|%s", models.FormatMonth(m), rec.Specialty, rec.Priority)
		if prev, dup := seen[key]; dup {
			return nil, r.fail("month", "duplicates row %d for %s", prev, key)
		}
		seen[key] = r.line
		out = append(out, rec)
	}
	sortByMonth(out, func(r models.ReferralRecord) int { return models.MonthIndex(r.Month) })
	return out, nil
}

// Appointments decodes an appointment table. Optional columns set the matching Has*
// flag only when the table carries them and the cell is not blank.
func Appointments(t *Table) ([]models.AppointmentRecord, error) {
	ix, err := Resolve(t, AppointmentColumns)
	if err != nil {
		return nil, err
	}
	sessions := ix.Has("sessions") && ix.Has("cancelled sessions") && ix.Has("minutes utilised")
	out := make([]*models.AppointmentRecord, 0, len(t.Rows))
	dna := rateColumn{col: "did not attend rate"}
	for i, cells := range t.Rows {
		r := row{table: t.Name, line: i + 2, cells: cells, ix: ix}
		if blank(cells) {
			continue
		}
		m, err := r.month()
		if err != nil {
			return nil, err
		}
		at, ok := appointmentType(r.text("appointment_type"))
		if !ok {
			return nil, r.fail("appointment_type", "%q is not one of %s", r.text("appointment_type"), typeList())
		}
		rec := &models.AppointmentRecord{Month: m, Specialty: r.text("specialty"), AppointmentType: at}
		if rec.Specialty == "" {
			return nil, r.fail("specialty", "is blank")
		}
		if rec.Attended, _, err = r.count("appointments_attended"); err != nil {
			return nil, err
		}
		if rec.ForRemovals, _, err = r.count("appointments_for_removals"); err != nil {
			return nil, err
		}
		if rec.Removals, rec.HasRemovals, err = r.count("removals"); err != nil {
			return nil, err
		}
		if rec.WaitingList, rec.HasWaitingList, err = r.count("waiting_list"); err != nil {
			return nil, err
		}
		if rec.HasDNARate, err = dna.read(r, &rec.DNARate); err != nil {
			return nil, err
		}
		if sessions {
			var a, b, c bool
			if rec.Sessions, a, err = r.count("sessions"); err != nil {
				return nil, err
			}
			if rec.CancelledSessions, b, err = r.count("cancelled sessions"); err != nil {
				return nil, err
			}
			if rec.MinutesUtilised, c, err = r.count("minutes utilised"); err != nil {
				return nil, err
			}
			rec.HasSessions = a || b || c
		}
		out = append(out, rec)
	}
	if err := dna.settle(); err != nil {
		return nil, err
	}
	recs := make([]models.AppointmentRecord, len(out))
	for i, rec := range out {
		recs[i] = *rec
	}
	sortByMonth(recs, func(r models.AppointmentRecord) int { return models.MonthIndex(r.Month) })
	return recs, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func typeList() string {
	names := make([]string, len(models.AppointmentTypes))
	for i, at := range models.AppointmentTypes {
		names[i] = fmt.Sprintf("%q", string(at))
	}
	return strings.Join(names, ", ")
}

func sortByMonth[R any](rs []R, idx func(R) int) {
	sort.SliceStable(rs, func(i, j int) bool { return idx(rs[i]) < idx(rs[j]) })
}
