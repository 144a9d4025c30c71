package config

import (
	"context"
	"log/slog"

	"outpatient_capacity/pkg/core/ingest"
	"outpatient_capacity/pkg/core/store"
	"outpatient_capacity/pkg/models"
)

// LoadDataset reads the configured source once. A database URL wins over file paths;
// the connection is closed again after both tables are read.
func (c Config) LoadDataset(ctx context.Context, logger *slog.Logger) (*models.Dataset, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.DatabaseURL == "" {
		return ingest.LoadFiles(c.ReferralsPath, c.AppointmentsPath, logger)
	}
	src, closeFn, err := store.Open(ctx, c.DatabaseURL)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return store.Load(ctx, src, c.Tables, logger)
}
