package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresAnalyticsRepo はPostgreSQLを使用した集計リポジトリ。
type PostgresAnalyticsRepo struct {
	db *sql.DB
}

// NewPostgresAnalyticsRepo はPostgresAnalyticsRepoを生成する。
func NewPostgresAnalyticsRepo(db *sql.DB) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{db: db}
}

// CountByType は種別ごとのIssue件数を件数の降順で返す。
// Issueが1件もない種別も0件として含める。
func (r *PostgresAnalyticsRepo) CountByType(ctx context.Context) ([]TypeCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT it.type_name, COUNT(i.id)
		 FROM issue_types it
		 LEFT JOIN issues i ON it.id = i.issue_type_id
		 GROUP BY it.id, it.type_name
		 ORDER BY COUNT(i.id) DESC, it.type_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues by type: %w", err)
	}
	defer rows.Close()

	var counts []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan type count row: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate type count rows: %w", err)
	}

	return counts, nil
}

// CountByStatus は導出ステータスごとのIssue件数を返す。
// ステータスはDBに保存されないため、2つのタイムスタンプからクエリ内で導出する。
// Open → In Progress → Completed の順で返す。
func (r *PostgresAnalyticsRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
		   CASE
		     WHEN time_finish IS NOT NULL THEN 'Completed'
		     WHEN time_start IS NOT NULL THEN 'In Progress'
		     ELSE 'Open'
		   END AS status,
		   COUNT(id)
		 FROM issues
		 GROUP BY status
		 ORDER BY
		   CASE status
		     WHEN 'Open' THEN 1
		     WHEN 'In Progress' THEN 2
		     WHEN 'Completed' THEN 3
		   END`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues by status: %w", err)
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Name, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count row: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status count rows: %w", err)
	}

	return counts, nil
}

// CountByMonth は直近6ヶ月の月別Issue件数をtime_issued基準で返す。
func (r *PostgresAnalyticsRepo) CountByMonth(ctx context.Context) ([]MonthCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT date_trunc('month', time_issued) AS month, COUNT(id)
		 FROM issues
		 WHERE time_issued >= date_trunc('month', CURRENT_DATE) - INTERVAL '5 months'
		 GROUP BY month
		 ORDER BY month ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues by month: %w", err)
	}
	defer rows.Close()

	var counts []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan month count row: %w", err)
		}
		counts = append(counts, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate month count rows: %w", err)
	}

	return counts, nil
}

// compile-time interface check
var _ AnalyticsRepository = (*PostgresAnalyticsRepo)(nil)
