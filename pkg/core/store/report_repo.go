package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"valuation_research/pkg/core/report"
)

// ErrNotFound is returned when no stored report matches.
var ErrNotFound = errors.New("report not found")

// StoredReport is one generated report as persisted.
type StoredReport struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId,omitempty"`
	Symbol      string           `json:"symbol"`
	CompanyName string           `json:"companyName"`
	ReportType  string           `json:"reportType"`
	Sections    *report.Sections `json:"reportJson,omitempty"`
	Markdown    string           `json:"markdown"`
	Citations   []string         `json:"citations"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ReportRepo stores reports in the valuation_reports table.
type ReportRepo struct {
	pool *pgxpool.Pool
}

// NewReportRepo uses pool, or the shared pool from InitDB when pool is nil.
func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) db() (*pgxpool.Pool, error) {
	if r.pool != nil {
		return r.pool, nil
	}
	if p := GetPool(); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("database pool not initialized")
}

// Save inserts rep, assigning an ID and timestamp when missing. It returns
// the ID.
func (r *ReportRepo) Save(ctx context.Context, rep StoredReport) (string, error) {
	pool, err := r.db()
	if err != nil {
		return "", err
	}

	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}
	if rep.Citations == nil {
		rep.Citations = []string{}
	}

	sectionsJSON, err := json.Marshal(rep.Sections)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sections: %w", err)
	}
	citationsJSON, err := json.Marshal(rep.Citations)
	if err != nil {
		return "", fmt.Errorf("failed to marshal citations: %w", err)
	}

	query := `
		INSERT INTO valuation_reports (id, user_id, symbol, company_name, report_type, report_json, markdown, citations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = pool.Exec(ctx, query, rep.ID, rep.UserID, rep.Symbol, rep.CompanyName, rep.ReportType,
		sectionsJSON, rep.Markdown, citationsJSON, rep.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return rep.ID, nil
}

// LatestBySymbol returns the newest report for symbol, or ErrNotFound.
func (r *ReportRepo) LatestBySymbol(ctx context.Context, symbol string) (*StoredReport, error) {
	pool, err := r.db()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, COALESCE(user_id, ''), symbol, company_name, COALESCE(report_type, ''), report_json, markdown, citations, created_at
		FROM valuation_reports
		WHERE upper(symbol) = upper($1)
		ORDER BY created_at DESC
		LIMIT 1
	`
	var (
		rep           StoredReport
		sectionsJSON  []byte
		citationsJSON []byte
	)
	err = pool.QueryRow(ctx, query, symbol).Scan(&rep.ID, &rep.UserID, &rep.Symbol, &rep.CompanyName,
		&rep.ReportType, &sectionsJSON, &rep.Markdown, &citationsJSON, &rep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	if err := decodeStored(&rep, sectionsJSON, citationsJSON); err != nil {
		return nil, err
	}
	return &rep, nil
}

func decodeStored(rep *StoredReport, sectionsJSON, citationsJSON []byte) error {
	if len(sectionsJSON) > 0 && string(sectionsJSON) != "null" {
		var s report.Sections
		if err := json.Unmarshal(sectionsJSON, &s); err != nil {
			return fmt.Errorf("failed to unmarshal sections: %w", err)
		}
		rep.Sections = &s
	}
	rep.Citations = []string{}
	if len(citationsJSON) > 0 {
		if err := json.Unmarshal(citationsJSON, &rep.Citations); err != nil {
			return fmt.Errorf("failed to unmarshal citations: %w", err)
		}
	}
	return nil
}
