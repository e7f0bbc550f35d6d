// Package issue はIssueの作成・取得・更新・削除と一覧取得のビジネスロジックを提供する。
package issue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/issuedesk/internal/auth"
	"github.com/hitoshi/issuedesk/internal/model"
	"github.com/hitoshi/issuedesk/internal/repository"
	"github.com/hitoshi/issuedesk/internal/security"
)

const (
	// DefaultPageSize は一覧取得のデフォルトページサイズ。
	DefaultPageSize = 10
	// MaxPageSize は一覧取得の最大ページサイズ。
	MaxPageSize = 100
)

// CreationRecorder はIssue作成のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。
type CreationRecorder interface {
	RecordIssueCreated()
}

// Service はIssueに関するビジネスロジックを提供する。
type Service struct {
	issueRepo repository.IssueRepository
	sanitizer security.ContentSanitizerService
	recorder  CreationRecorder
}

// NewService はServiceを生成する。recorderはnil可。
func NewService(
	issueRepo repository.IssueRepository,
	sanitizer security.ContentSanitizerService,
	recorder CreationRecorder,
) *Service {
	return &Service{
		issueRepo: issueRepo,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

// Input はIssueの作成・更新の入力。
type Input struct {
	Title       string
	TypeID      *int
	Description string
	Solution    string
	TimeIssued  *time.Time
	TimeStart   *time.Time
	TimeFinish  *time.Time
	AssignedTo  *int
}

// Create は新しいIssueを作成する。
// 作成者は常に操作ユーザー自身であり、入力からは受け取らない。
// 説明・対処内容はサニタイズしてから保存する。
func (s *Service) Create(ctx context.Context, actor *model.User, input Input) (*model.Issue, error) {
	if actor == nil {
		return nil, model.NewAuthenticationError()
	}
	if input.Title == "" {
		return nil, model.NewValidationError("タイトルは必須です。")
	}

	timeIssued := time.Now()
	if input.TimeIssued != nil {
		timeIssued = *input.TimeIssued
	}

	issue := &model.Issue{
		Title:       input.Title,
		TypeID:      input.TypeID,
		Description: s.sanitizer.Sanitize(input.Description),
		Solution:    s.sanitizer.Sanitize(input.Solution),
		TimeIssued:  timeIssued,
		TimeStart:   input.TimeStart,
		TimeFinish:  input.TimeFinish,
		CreatedBy:   actor.ID,
		AssignedTo:  input.AssignedTo,
		CreatedAt:   time.Now(),
	}

	if err := s.issueRepo.Create(ctx, issue); err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordIssueCreated()
	}

	slog.Info("issue created",
		slog.Int("issue_id", issue.ID),
		slog.Int("created_by", actor.ID),
	)

	return issue, nil
}

// Get はIssueを取得する。
// 閲覧権限（管理者・作成者・担当者のいずれか）がない場合は403を返す。
func (s *Service) Get(ctx context.Context, actor *model.User, id int) (*model.Issue, error) {
	issue, err := s.issueRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, model.NewNotFoundError("課題")
	}

	if !auth.CanView(actor, issue) {
		return nil, model.NewAuthorizationError()
	}

	return issue, nil
}

// Update はIssueの可変フィールドを更新する。
// 管理権限（管理者または作成者本人）が必要。担当者には許可しない。
// created_by は入力に関わらず変更されない。
func (s *Service) Update(ctx context.Context, actor *model.User, id int, input Input) (*model.Issue, error) {
	issue, err := s.issueRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, model.NewNotFoundError("課題")
	}

	if !auth.CanManage(actor, issue.CreatedBy) {
		return nil, model.NewAuthorizationError()
	}

	if input.Title == "" {
		return nil, model.NewValidationError("タイトルは必須です。")
	}

	issue.Title = input.Title
	issue.TypeID = input.TypeID
	issue.Description = s.sanitizer.Sanitize(input.Description)
	issue.Solution = s.sanitizer.Sanitize(input.Solution)
	if input.TimeIssued != nil {
		issue.TimeIssued = *input.TimeIssued
	}
	issue.TimeStart = input.TimeStart
	issue.TimeFinish = input.TimeFinish
	issue.AssignedTo = input.AssignedTo

	if err := s.issueRepo.Update(ctx, issue); err != nil {
		return nil, err
	}

	// 種別名はJOINで取得されるため、変更後の値を反映するには再取得が必要
	updated, err := s.issueRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return issue, nil
	}
	return updated, nil
}

// Delete はIssueを削除する。管理権限（管理者または作成者本人）が必要。
func (s *Service) Delete(ctx context.Context, actor *model.User, id int) error {
	issue, err := s.issueRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if issue == nil {
		return model.NewNotFoundError("課題")
	}

	if !auth.CanManage(actor, issue.CreatedBy) {
		return model.NewAuthorizationError()
	}

	if err := s.issueRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	slog.Info("issue deleted",
		slog.Int("issue_id", id),
		slog.Int("deleted_by", actor.ID),
	)

	return nil
}

// List はフィルタ・ページネーション付きのIssue一覧を返す。
// 管理者は全件、一般ユーザーは自分が作成または担当するIssueのみが対象となる。
// スコープの絞り込みはリクエスト内容に関わらずサーバー側で強制する。
func (s *Service) List(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error) {
	if actor == nil {
		return nil, model.NewAuthenticationError()
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var scopeUserID *int
	if !auth.IsAdmin(actor) {
		scopeUserID = &actor.ID
	}

	return s.issueRepo.List(ctx, filter, page, pageSize, scopeUserID)
}
