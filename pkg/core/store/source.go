package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outpatient_capacity/pkg/core/ingest"
	"outpatient_capacity/pkg/models"
)

// Tables names the two source tables.
type Tables struct {
	Referrals    string `yaml:"referrals"`
	Appointments string `yaml:"appointments"`
}

// DefaultTables are used when configuration leaves the names empty.
var DefaultTables = Tables{Referrals: "referrals", Appointments: "appointments"}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// selectAll builds the read query for one table. Names are validated, never quoted in.
func selectAll(table string) (string, error) {
	if !tableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return "SELECT * FROM " + table, nil
}

// Source reads one raw table.
type Source interface {
	ReadTable(ctx context.Context, logical, table string) (*ingest.Table, error)
}

// PostgresSource reads through a pgx pool.
type PostgresSource struct {
	Pool *pgxpool.Pool
}

func (s *PostgresSource) ReadTable(ctx context.Context, logical, table string) (*ingest.Table, error) {
	q, err := selectAll(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	t := &ingest.Table{Name: logical}
	for _, fd := range rows.FieldDescriptions() {
		t.Header = append(t.Header, fd.Name)
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		t.Rows = append(t.Rows, cells(vals))
	}
	return t, rows.Err()
}

// SQLSource reads through database/sql (MySQL, MariaDB).
type SQLSource struct {
	DB *sql.DB
}

func (s *SQLSource) ReadTable(ctx context.Context, logical, table string) (*ingest.Table, error) {
	q, err := selectAll(table)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := &ingest.Table{Name: logical, Header: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		t.Rows = append(t.Rows, cells(vals))
	}
	return t, rows.Err()
}

// cells renders driver values as the text the ingest decoder expects.
func cells(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = cellText(v)
	}
	return out
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format("2006-01-02")
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return ""
		}
		return cellText(inner)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// Kind is the database family behind a DSN.
type Kind string

const (
	Postgres Kind = "postgres"
	MySQL    Kind = "mysql"
)

// KindOf routes a DSN by scheme; native MySQL DSNs are recognised by "@tcp(".
func KindOf(dsn string) (Kind, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, nil
	case strings.HasPrefix(dsn, "mysql://"), strings.HasPrefix(dsn, "mariadb://"), strings.Contains(dsn, "@tcp("):
		return MySQL, nil
	}
	return "", fmt.Errorf("unsupported database url %q", redact(dsn))
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
		return "***" + dsn[i:]
	}
	return dsn
}

// Open connects to the database behind dsn. The returned close func releases it.
func Open(ctx context.Context, dsn string) (Source, func(), error) {
	kind, err := KindOf(dsn)
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case Postgres:
		if err := InitDB(ctx, dsn); err != nil {
			return nil, nil, err
		}
		return &PostgresSource{Pool: GetPool()}, Close, nil
	default:
		db, err := OpenMySQL(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		return &SQLSource{DB: db}, func() { db.Close() }, nil
	}
}

// Load reads and decodes both tables.
func Load(ctx context.Context, src Source, tables Tables, logger *slog.Logger) (*models.Dataset, error) {
	if tables.Referrals == "" {
		tables.Referrals = DefaultTables.Referrals
	}
	if tables.Appointments == "" {
		tables.Appointments = DefaultTables.Appointments
	}
	refs, err := src.ReadTable(ctx, ingest.ReferralTable, tables.Referrals)
	if err != nil {
		return nil, err
	}
	appts, err := src.ReadTable(ctx, ingest.AppointmentTable, tables.Appointments)
	if err != nil {
		return nil, err
	}
	d, err := ingest.Decode(refs, appts)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("dataset loaded", "component", "store", "referrals", len(d.Referrals), "appointments", len(d.Appointments))
	}
	return d, nil
}
