package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/apexcrm/apex/config"
	"github.com/apexcrm/apex/internal/solver"
)

// Store wraps the CRM Postgres database.
type Store struct {
	DB     *sql.DB
	logger *log.Logger
}

// New opens a connection pool from the storage configuration.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN opens a connection pool for the given DSN and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db, logger: log.New(log.Writer(), "[STORE] ", log.LstdFlags)}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

// ExecuteReadOnly runs an arbitrary SELECT inside a read-only transaction
// and returns rows as maps keyed by column name. limit caps the rows read.
func (s *Store) ExecuteReadOnly(ctx context.Context, query string, limit int) ([]map[string]interface{}, error) {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := make([]map[string]interface{}, 0, 16)
	for rows.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// PipelineValue sums open opportunity amounts.
func (s *Store) PipelineValue(ctx context.Context) (float64, error) {
	var value float64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM opportunities WHERE stage NOT IN ('closed_won', 'closed_lost')`,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("pipeline value: %w", err)
	}
	return value, nil
}

// LeadConversionRate is the percentage of leads marked converted.
func (s *Store) LeadConversionRate(ctx context.Context) (float64, error) {
	var total, converted float64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'converted') FROM leads`,
	).Scan(&total, &converted)
	if err != nil {
		return 0, fmt.Errorf("lead conversion rate: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return converted / total * 100, nil
}

// WinRate is the percentage of closed opportunities that were won.
func (s *Store) WinRate(ctx context.Context) (float64, error) {
	var closed, won float64
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE stage IN ('closed_won', 'closed_lost')),
		        COUNT(*) FILTER (WHERE stage = 'closed_won')
		 FROM opportunities`,
	).Scan(&closed, &won)
	if err != nil {
		return 0, fmt.Errorf("win rate: %w", err)
	}
	if closed == 0 {
		return 0, nil
	}
	return won / closed * 100, nil
}

// RecordSolve appends a finished run to the audit log.
func (s *Store) RecordSolve(ctx context.Context, userID int64, result solver.SolveResult) error {
	memory, err := json.Marshal(result.Memory)
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO solve_log (run_id, user_id, query, answer, last_command, result_count, steps, model_used, termination, elapsed_ms, memory, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		result.RunID, userID, result.Query, result.Answer, result.LastCommand,
		result.ResultCount, result.Steps, result.ModelUsed, string(result.Termination),
		result.Elapsed.Milliseconds(), memory, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert solve_log: %w", err)
	}
	return nil
}

// SolveHistoryItem is one entry returned by SolveHistory.
type SolveHistoryItem struct {
	RunID       string    `json:"run_id"`
	Query       string    `json:"query"`
	Answer      string    `json:"answer"`
	ResultCount int       `json:"result_count"`
	Steps       int       `json:"steps"`
	ModelUsed   bool      `json:"model_used"`
	Termination string    `json:"termination"`
	CreatedAt   time.Time `json:"created_at"`
}

// SolveHistory returns a user's most recent runs, newest first.
func (s *Store) SolveHistory(ctx context.Context, userID int64, limit int) ([]SolveHistoryItem, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT run_id, query, answer, result_count, steps, model_used, termination, created_at
		 FROM solve_log WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query solve_log: %w", err)
	}
	defer rows.Close()

	var items []SolveHistoryItem
	for rows.Next() {
		var item SolveHistoryItem
		if err := rows.Scan(&item.RunID, &item.Query, &item.Answer, &item.ResultCount, &item.Steps, &item.ModelUsed, &item.Termination, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan solve_log: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
