package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"outpatient_capacity/pkg/models"
)

const (
	ReferralTable    = "referral"
	AppointmentTable = "appointment"
)

// ReadTable picks the reader by file extension (.csv, .html, .htm).
func ReadTable(name, path string) (*Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		return openFile(name, path, ReadCSV)
	case ".html", ".htm":
		return openFile(name, path, ReadHTMLTable)
	default:
		return nil, fmt.Errorf("%s table %s: unsupported file type %q", name, path, ext)
	}
}

// LoadFiles reads and decodes both tables from disk.
func LoadFiles(referralPath, appointmentPath string, logger *slog.Logger) (*models.Dataset, error) {
	refT, err := ReadTable(ReferralTable, referralPath)
	if err != nil {
		return nil, err
	}
	apptT, err := ReadTable(AppointmentTable, appointmentPath)
	if err != nil {
		return nil, err
	}
	d, err := Decode(refT, apptT)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("dataset loaded", "component", "ingest",
			"referrals", len(d.Referrals), "appointments", len(d.Appointments), "specialties", len(d.Specialties()))
	}
	return d, nil
}

// LoadCSV decodes both tables from CSV readers.
func LoadCSV(referrals, appointments io.Reader) (*models.Dataset, error) {
	refT, err := ReadCSV(ReferralTable, referrals)
	if err != nil {
		return nil, err
	}
	apptT, err := ReadCSV(AppointmentTable, appointments)
	if err != nil {
		return nil, err
	}
	return Decode(refT, apptT)
}

// Decode validates both schemas before decoding any rows.
func Decode(referrals, appointments *Table) (*models.Dataset, error) {
	if _, err := Resolve(referrals, ReferralColumns); err != nil {
		return nil, err
	}
	if _, err := Resolve(appointments, AppointmentColumns); err != nil {
		return nil, err
	}
	refs, err := Referrals(referrals)
	if err != nil {
		return nil, err
	}
	appts, err := Appointments(appointments)
	if err != nil {
		return nil, err
	}
	return &models.Dataset{Referrals: refs, Appointments: appts}, nil
}
