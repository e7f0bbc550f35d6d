package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/issuedesk/internal/model"
)

// PostgresIssueTypeRepo はPostgreSQLを使用したIssue種別リポジトリ。
type PostgresIssueTypeRepo struct {
	db *sql.DB
}

// NewPostgresIssueTypeRepo はPostgresIssueTypeRepoを生成する。
func NewPostgresIssueTypeRepo(db *sql.DB) *PostgresIssueTypeRepo {
	return &PostgresIssueTypeRepo{db: db}
}

// List は全種別を名前の昇順で返す。
func (r *PostgresIssueTypeRepo) List(ctx context.Context) ([]*model.IssueType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type_name FROM issue_types ORDER BY type_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue types: %w", err)
	}
	defer rows.Close()

	var types []*model.IssueType
	for rows.Next() {
		t := &model.IssueType{}
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan issue type row: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issue type rows: %w", err)
	}

	return types, nil
}

// Create は種別を作成し、採番されたIDをt.IDに設定する。
// 種別名の重複は事前チェックではなく一意制約違反の変換で検出する。
func (r *PostgresIssueTypeRepo) Create(ctx context.Context, t *model.IssueType) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO issue_types (type_name) VALUES ($1) RETURNING id`,
		t.Name,
	).Scan(&t.ID)

	if err != nil {
		if conflict := translateUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to insert issue type: %w", err)
	}

	return nil
}

// compile-time interface check
var _ IssueTypeRepository = (*PostgresIssueTypeRepo)(nil)
