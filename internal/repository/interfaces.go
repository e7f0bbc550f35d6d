// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/issuedesk/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに設定する。
	// username / email の一意制約違反は*model.APIError（Conflict）として返る。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーのプロフィール・ロール・パスワードハッシュを更新する。
	// 一意制約違反は*model.APIError（Conflict）として返る。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	DeleteByID(ctx context.Context, id int) error

	// List は全ユーザーを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// ListUsernames は全ユーザーのIDとユーザー名のみをユーザー名昇順で返す。
	// 担当者選択・フィルタ用の限定ビュー。
	ListUsernames(ctx context.Context) ([]*model.User, error)
}

// IssueRepository はIssueデータの永続化インターフェース。
type IssueRepository interface {
	// FindByID は指定IDのIssueを種別名のJOIN付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int) (*model.Issue, error)

	// Create はIssueを作成し、採番されたIDをissue.IDに設定する。
	Create(ctx context.Context, issue *model.Issue) error

	// Update はIssueの可変フィールドを更新する。created_by は変更しない。
	Update(ctx context.Context, issue *model.Issue) error

	// DeleteByID は指定IDのIssueを削除する。
	DeleteByID(ctx context.Context, id int) error

	// List はフィルタ・ページネーション付きのIssue一覧を返す。
	// scopeUserIDが非nilの場合、(created_by = scope OR assigned_to = scope) の
	// スコープ句を全条件にANDで強制する。件数取得と行取得は同一のWHERE句を共有する。
	List(ctx context.Context, filter model.IssueFilter, page, pageSize int, scopeUserID *int) (*model.IssuePage, error)

	// CountCreatedBy は指定ユーザーが作成したIssue数を返す。
	// ユーザー削除時の参照ガードに使用する。
	CountCreatedBy(ctx context.Context, userID int) (int, error)

	// ClearAssignee は指定ユーザーへの担当割り当てをすべて解除する。
	ClearAssignee(ctx context.Context, userID int) error
}

// IssueTypeRepository はIssue種別の永続化インターフェース。
type IssueTypeRepository interface {
	// List は全種別を名前の昇順で返す。
	List(ctx context.Context) ([]*model.IssueType, error)

	// Create は種別を作成し、採番されたIDをt.IDに設定する。
	// 種別名の一意制約違反は*model.APIError（Conflict）として返る。
	Create(ctx context.Context, t *model.IssueType) error
}

// StatusCount は導出ステータスごとのIssue件数。
type StatusCount struct {
	Name  string
	Count int
}

// TypeCount は種別ごとのIssue件数。
type TypeCount struct {
	Name  string
	Count int
}

// MonthCount は月ごとのIssue件数。
type MonthCount struct {
	Month time.Time
	Count int
}

// AnalyticsRepository はダッシュボード用の集計クエリのインターフェース。
type AnalyticsRepository interface {
	// CountByType は種別ごとのIssue件数を件数の降順で返す。
	CountByType(ctx context.Context) ([]TypeCount, error)

	// CountByStatus は導出ステータスごとのIssue件数を返す。
	// ステータスはtime_start / time_finish からクエリ内で導出する。
	CountByStatus(ctx context.Context) ([]StatusCount, error)

	// CountByMonth は直近6ヶ月の月別Issue件数をtime_issued基準で返す。
	CountByMonth(ctx context.Context) ([]MonthCount, error)
}
