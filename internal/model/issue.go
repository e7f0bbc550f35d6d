package model

import "time"

// IssueStatus はIssueの進行状態を表す。
// ステータスはDBに保存せず、time_start / time_finish から常に導出する。
type IssueStatus string

const (
	// StatusOpen は未着手状態。time_start も time_finish も未設定。
	StatusOpen IssueStatus = "Open"
	// StatusInProgress は対応中状態。time_start のみ設定済み。
	StatusInProgress IssueStatus = "In Progress"
	// StatusCompleted は完了状態。time_finish が設定済み。
	StatusCompleted IssueStatus = "Completed"
)

// Issue は報告された問題を表す。
// CreatedBy は作成後に変更されない。AssignedTo は任意。
type Issue struct {
	ID          int
	Title       string
	TypeID      *int
	TypeName    string // issue_types とのJOINで取得。未設定の場合は空文字列。
	Description string
	Solution    string
	TimeIssued  time.Time
	TimeStart   *time.Time
	TimeFinish  *time.Time
	CreatedBy   int
	AssignedTo  *int
	CreatedAt   time.Time
}

// Status は2つのタイムスタンプから進行状態を導出する。
func (i *Issue) Status() IssueStatus {
	if i.TimeFinish != nil {
		return StatusCompleted
	}
	if i.TimeStart != nil {
		return StatusInProgress
	}
	return StatusOpen
}

// IssueType はIssueの分類を表すルックアップテーブルのエントリ。
type IssueType struct {
	ID   int
	Name string
}

// フィルタのセンチネル値。クライアントから文字列で渡される。
const (
	// FilterAll はフィルタを適用しないことを表す。
	FilterAll = "all"
	// FilterUnassigned は担当者未割り当て（assigned_to IS NULL）を表す。
	FilterUnassigned = "null"
)

// IssueFilter はIssue一覧取得のフィルタ条件を表す。
// ゼロ値フィールドは条件として適用されない。
type IssueFilter struct {
	Search     string     // タイトルまたは説明への部分一致（大文字小文字を区別しない）
	TypeID     string     // Issue種別ID。"all" または空文字列でフィルタなし
	AssignedTo string     // 担当者ID。"all"でフィルタなし、"null"で未割り当てのみ
	StartDate  *time.Time // time_issued の下限（両端を含む）
	EndDate    *time.Time // time_issued の上限（両端を含む）
}

// IssuePage はIssue一覧のページネーション結果を表す。
type IssuePage struct {
	Issues     []*Issue
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}
