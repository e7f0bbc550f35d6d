package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/issuedesk/internal/model"
)

// issueSelectColumns はIssue行取得で共通に使用するSELECT句。
const issueSelectColumns = `
	SELECT i.id, i.title, i.issue_type_id, it.type_name,
	       i.description, i.solution, i.time_issued, i.time_start, i.time_finish,
	       i.created_by, i.assigned_to, i.created_at
	FROM issues i
	LEFT JOIN issue_types it ON i.issue_type_id = it.id`

// PostgresIssueRepo はPostgreSQLを使用したIssueリポジトリ。
type PostgresIssueRepo struct {
	db *sql.DB
}

// NewPostgresIssueRepo はPostgresIssueRepoを生成する。
func NewPostgresIssueRepo(db *sql.DB) *PostgresIssueRepo {
	return &PostgresIssueRepo{db: db}
}

// scanIssue は1行分のIssueをNULL許容カラムを考慮して読み取る。
func scanIssue(row interface{ Scan(...any) error }) (*model.Issue, error) {
	issue := &model.Issue{}
	var typeID, assignedTo sql.NullInt64
	var typeName, solution sql.NullString
	var timeStart, timeFinish sql.NullTime

	err := row.Scan(
		&issue.ID, &issue.Title, &typeID, &typeName,
		&issue.Description, &solution, &issue.TimeIssued, &timeStart, &timeFinish,
		&issue.CreatedBy, &assignedTo, &issue.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if typeID.Valid {
		v := int(typeID.Int64)
		issue.TypeID = &v
	}
	issue.TypeName = typeName.String
	issue.Solution = solution.String
	if timeStart.Valid {
		t := timeStart.Time
		issue.TimeStart = &t
	}
	if timeFinish.Valid {
		t := timeFinish.Time
		issue.TimeFinish = &t
	}
	if assignedTo.Valid {
		v := int(assignedTo.Int64)
		issue.AssignedTo = &v
	}

	return issue, nil
}

// FindByID は指定IDのIssueを種別名のJOIN付きで取得する。見つからない場合はnilを返す。
func (r *PostgresIssueRepo) FindByID(ctx context.Context, id int) (*model.Issue, error) {
	row := r.db.QueryRowContext(ctx, issueSelectColumns+` WHERE i.id = $1`, id)

	issue, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find issue by ID: %w", err)
	}

	return issue, nil
}

// Create はIssueを作成し、採番されたIDをissue.IDに設定する。
func (r *PostgresIssueRepo) Create(ctx context.Context, issue *model.Issue) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO issues (title, issue_type_id, description, solution,
		                     time_issued, time_start, time_finish,
		                     created_by, assigned_to, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		issue.Title, issue.TypeID, issue.Description, nullIfEmpty(issue.Solution),
		issue.TimeIssued, issue.TimeStart, issue.TimeFinish,
		issue.CreatedBy, issue.AssignedTo, issue.CreatedAt,
	).Scan(&issue.ID)

	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}

	return nil
}

// Update はIssueの可変フィールドを更新する。created_by は変更しない。
func (r *PostgresIssueRepo) Update(ctx context.Context, issue *model.Issue) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE issues
		 SET title = $1, issue_type_id = $2, description = $3, solution = $4,
		     time_issued = $5, time_start = $6, time_finish = $7, assigned_to = $8
		 WHERE id = $9`,
		issue.Title, issue.TypeID, issue.Description, nullIfEmpty(issue.Solution),
		issue.TimeIssued, issue.TimeStart, issue.TimeFinish, issue.AssignedTo,
		issue.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewNotFoundError("Issue")
	}

	return nil
}

// DeleteByID は指定IDのIssueを削除する。
func (r *PostgresIssueRepo) DeleteByID(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM issues WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewNotFoundError("Issue")
	}

	return nil
}

// List はフィルタ・ページネーション付きのIssue一覧を返す。
// 件数取得と行取得は同一のWHERE句を共有するため、totalPagesと
// 表示行が常に整合する。並び順は作成日時の降順、同時刻はID降順。
func (r *PostgresIssueRepo) List(ctx context.Context, filter model.IssueFilter, page, pageSize int, scopeUserID *int) (*model.IssuePage, error) {
	where, args, err := buildIssueWhere(filter, scopeUserID)
	if err != nil {
		return nil, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM issues i` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize

	dataArgs := append(args, pageSize, (page-1)*pageSize)
	dataQuery := fmt.Sprintf(
		issueSelectColumns+where+` ORDER BY i.created_at DESC, i.id DESC LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2,
	)

	rows, err := r.db.QueryContext(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	issues := []*model.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issue rows: %w", err)
	}

	return &model.IssuePage{
		Issues:     issues,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// CountCreatedBy は指定ユーザーが作成したIssue数を返す。
func (r *PostgresIssueRepo) CountCreatedBy(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM issues WHERE created_by = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count issues by creator: %w", err)
	}
	return count, nil
}

// ClearAssignee は指定ユーザーへの担当割り当てをすべて解除する。
func (r *PostgresIssueRepo) ClearAssignee(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE issues SET assigned_to = NULL WHERE assigned_to = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear assignee: %w", err)
	}
	return nil
}

// nullIfEmpty は空文字列をNULLとして保存するためのヘルパー。
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ IssueRepository = (*PostgresIssueRepo)(nil)
