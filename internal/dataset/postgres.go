package dataset

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresConfig selects the order table read by PostgresSource
type PostgresConfig struct {
	DSN          string        `yaml:"dsn"`
	Table        string        `yaml:"table"`
	Status       string        `yaml:"status"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// PostgresSource reads orders from a relational order table and derives the
// RFM summary from the same table
type PostgresSource struct {
	db      *sqlx.DB
	table   string
	status  string
	timeout time.Duration
	now     func() time.Time
}

// Order logs commonly have lines without a customer or amount, so every
// nullable column scans into a sql.Null type and incomplete rows are dropped
type orderRecord struct {
	OrderDate   sql.NullTime   `db:"order_date"`
	TotalAmount sql.NullString `db:"total_amount"`
	Country     string         `db:"country"`
	CustomerID  string         `db:"customer_id"`
}

type customerRecord struct {
	CustomerID sql.NullString `db:"customer_id"`
	LastOrder  sql.NullTime   `db:"last_order"`
	Frequency  int64          `db:"frequency"`
	Monetary   sql.NullString `db:"monetary"`
}

// OpenPostgres connects to the database described by cfg
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	src, err := NewPostgresSource(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return src, nil
}

// NewPostgresSource wraps an open connection
func NewPostgresSource(db *sqlx.DB, cfg PostgresConfig) (*PostgresSource, error) {
	table := cfg.Table
	if table == "" {
		table = "orders"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PostgresSource{
		db:      db,
		table:   table,
		status:  cfg.Status,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

func (s *PostgresSource) Name() string { return "postgres" }

// Close releases the connection pool
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

func (s *PostgresSource) Open(ctx context.Context, kind Kind) (io.ReadCloser, Meta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		body []byte
		err  error
	)
	switch kind {
	case KindOrders:
		body, err = s.orders(ctx)
	case KindRFM:
		body, err = s.customers(ctx)
	default:
		return nil, Meta{}, fmt.Errorf("%s: %w", kind, ErrNotFound)
	}
	if err != nil {
		return nil, Meta{}, err
	}

	return io.NopCloser(bytes.NewReader(body)), Meta{
		Kind:     kind,
		Source:   s.Name(),
		Name:     s.table,
		LoadedAt: s.now().UTC(),
	}, nil
}

// where joins conds with the optional status filter
func (s *PostgresSource) where(conds ...string) (string, []interface{}) {
	var args []interface{}
	if s.status != "" {
		conds = append(conds, "status = $1")
		args = append(args, s.status)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PostgresSource) orders(ctx context.Context) ([]byte, error) {
	where, args := s.where("order_date IS NOT NULL", "total_amount IS NOT NULL")
	query := `SELECT order_date, total_amount::text AS total_amount,
		COALESCE(country, '') AS country, COALESCE(customer_id::text, '') AS customer_id
		FROM ` + s.table + where + ` ORDER BY order_date`

	var records []orderRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	rows := records[:0]
	for _, r := range records {
		if r.OrderDate.Valid && r.TotalAmount.Valid {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", s.table, ErrNotFound)
	}

	return renderCSV([]string{ColInvoiceDate, ColTotalAmount, ColCountry, ColCustomerID}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{r.OrderDate.Time.UTC().Format("2006-01-02 15:04:05"), r.TotalAmount.String, r.Country, r.CustomerID}
	})
}

// customers aggregates recency in whole days, order count and total spend.
// Orders without a customer are left out
func (s *PostgresSource) customers(ctx context.Context) ([]byte, error) {
	where, args := s.where("customer_id IS NOT NULL", "order_date IS NOT NULL", "total_amount IS NOT NULL")
	query := `SELECT customer_id::text AS customer_id, MAX(order_date) AS last_order,
		COUNT(*) AS frequency, SUM(total_amount)::text AS monetary
		FROM ` + s.table + where + ` GROUP BY customer_id ORDER BY customer_id`

	var records []customerRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	rows := records[:0]
	for _, r := range records {
		if r.CustomerID.Valid && r.LastOrder.Valid && r.Monetary.Valid {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty: %w", s.table, ErrNotFound)
	}

	today := truncateDay(s.now().UTC())
	return renderCSV([]string{ColCustomerID, ColRecency, ColFrequency, ColMonetary}, len(rows), func(i int) []string {
		r := rows[i]
		days := int(today.Sub(truncateDay(r.LastOrder.Time.UTC())).Hours() / 24)
		return []string{r.CustomerID.String, strconv.Itoa(days), strconv.FormatInt(r.Frequency, 10), r.Monetary.String}
	})
}

func renderCSV(header []string, n int, row func(int) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
