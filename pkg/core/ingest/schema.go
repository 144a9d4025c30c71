// Package ingest reads the referral and appointment tables from CSV or HTML exports
// and validates them against the fixed column contract once, at load time.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"outpatient_capacity/pkg/models"
)

// =============================================================================
// COLUMN CONTRACT
// =============================================================================

// Column is one logical field and the header names it may appear under.
type Column struct {
	Name     string
	Aliases  []string
	Required bool
}

func (c Column) names() []string { return append([]string{c.Name}, c.Aliases...) }

// ReferralColumns is the referral table contract.
var ReferralColumns = []Column{
	{Name: "month", Required: true},
	{Name: "specialty", Required: true},
	{Name: "priority"},
	{Name: "referrals", Aliases: []string{"additions"}, Required: true},
}

// AppointmentColumns is the appointment table contract.
var AppointmentColumns = []Column{
	{Name: "month", Required: true},
	{Name: "specialty", Required: true},
	{Name: "appointment_type", Aliases: []string{"appointment type"}, Required: true},
	{Name: "appointments_attended", Aliases: []string{"appointments completed"}, Required: true},
	{Name: "appointments_for_removals", Required: true},
	{Name: "removals"},
	{Name: "waiting_list", Aliases: []string{"total waiting list"}},
	{Name: "sessions"},
	{Name: "cancelled sessions", Aliases: []string{"cancelled_sessions"}},
	{Name: "minutes utilised", Aliases: []string{"minutes_utilised"}},
	{Name: "did not attend rate", Aliases: []string{"did_not_attend_rate", "dna_rate"}},
}

// Table is a raw rectangular table with a header row.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index maps logical column names to header positions.
type Index map[string]int

// Has reports whether a column is present.
func (ix Index) Has(name string) bool {
	_, ok := ix[name]
	return ok
}

// Resolve matches the header against a contract (trimmed, case-insensitive) and names
// every missing required column in one SchemaError.
func Resolve(t *Table, cols []Column) (Index, error) {
	pos := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	ix := make(Index, len(cols))
	var missing []string
	for _, c := range cols {
		found := false
		for _, n := range c.names() {
			if i, ok := pos[n]; ok {
				ix[c.Name] = i
				found = true
				break
			}
		}
		if !found && c.Required {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &models.SchemaError{Table: t.Name, Missing: missing}
	}
	return ix, nil
}

// =============================================================================
// ROW DECODING
// =============================================================================

type row struct {
	table string
	line  int
	cells []string
	ix    Index
}

func (r row) text(col string) string {
	i, ok := r.ix[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) fail(col string, format string, args ...any) error {
	return fmt.Errorf("%s table row %d: %w", r.table, r.line,
		&models.InvalidRangeError{Field: col, Reason: fmt.Sprintf(format, args...)})
}

// count parses a non-negative number. ok is false when the cell is blank.
func (r row) count(col string) (v float64, ok bool, err error) {
	s := strings.ReplaceAll(r.text(col), ",", "")
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, r.fail(col, "%q is not a number", s)
	}
	if v < 0 {
		return 0, false, r.fail(col, "%v is negative", v)
	}
	return v, true, nil
}

// rateColumn reads a rate column whose scale is settled once every row is seen. Cells
// ending in "%" are percentages. Bare cells are fractions unless any bare cell in the
// column exceeds 1, in which case all of them are percentages, so a bare 1 means 100%
// in a fraction column and 1% in a percentage column.
type rateColumn struct {
	col   string
	cells []rateCell
}

type rateCell struct {
	r   row
	dst *float64
	pct bool
	v   float64
}

// read parses one cell and queues it for settle. ok is false when the cell is blank.
func (c *rateColumn) read(r row, dst *float64) (ok bool, err error) {
	s := r.text(c.col)
	pct := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, r.fail(c.col, "%q is not a rate", r.text(c.col))
	}
	c.cells = append(c.cells, rateCell{r: r, dst: dst, pct: pct, v: v})
	return true, nil
}

// settle writes every queued cell as a fraction and range-checks it.
func (c *rateColumn) settle() error {
	percent := false
	for _, cell := range c.cells {
		if !cell.pct && cell.v > 1 {
			percent = true
			break
		}
	}
	for _, cell := range c.cells {
		v := cell.v
		if cell.pct || percent {
			v /= 100
		}
		if v < 0 || v > 1 {
			return cell.r.fail(c.col, "%v is outside [0, 1]", v)
		}
		*cell.dst = v
	}
	return nil
}

func (r row) month() (time.Time, error) {
	t, err := models.ParseMonth(r.text("month"))
	if err != nil {
		return time.Time{}, r.fail("month", "%v", err)
	}
	return t, nil
}

func appointmentType(s string) (models.AppointmentType, bool) {
	if at, ok := models.ParseAppointmentType(s); ok {
		return at, true
	}
	for _, at := range models.AppointmentTypes {
		if strings.EqualFold(string(at), s) {
			return at, true
		}
	}
	return "", false
}
