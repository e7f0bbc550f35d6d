// Package issuetype はIssue種別の管理機能を提供する。
package issuetype

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/issuedesk/internal/model"
	"github.com/hitoshi/issuedesk/internal/repository"
)

// DefaultCacheTTL は種別一覧キャッシュのデフォルト有効期間。
// 種別は作成頻度が低いルックアップデータであり、多少の遅延は許容できる。
const DefaultCacheTTL = 5 * time.Minute

// Service はIssue種別の取得・作成を提供する。
// 一覧はインメモリでキャッシュし、作成時に無効化する。
type Service struct {
	repo     repository.IssueTypeRepository
	cacheTTL time.Duration

	mu        sync.Mutex
	cached    []*model.IssueType
	expiresAt time.Time

	// now はテストで時刻を差し替えるためのフック。
	now func() time.Time
}

// NewService はServiceを生成する。cacheTTLが0以下の場合はDefaultCacheTTLを使用する。
func NewService(repo repository.IssueTypeRepository, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		repo:     repo,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// List は全種別を名前の昇順で返す。
// キャッシュが有効な間はストアへ問い合わせない。
func (s *Service) List(ctx context.Context) ([]*model.IssueType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Before(s.expiresAt) {
		return s.cached, nil
	}

	types, err := s.repo.List(ctx)
	if err != nil {
		// キャッシュ切れ＋ストア障害時は古い値があればそれを返す
		if s.cached != nil {
			slog.Warn("issue type store unavailable, serving stale cache",
				slog.String("error", err.Error()),
			)
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = types
	s.expiresAt = s.now().Add(s.cacheTTL)
	return types, nil
}

// Create は新しい種別を作成する。管理者のみが実行できる。
// 作成成功時はキャッシュを無効化し、次回の一覧取得に即座に反映させる。
func (s *Service) Create(ctx context.Context, actor *model.User, name string) (*model.IssueType, error) {
	if actor == nil || actor.Role != model.RoleAdmin {
		return nil, model.NewAuthorizationError()
	}
	if name == "" {
		return nil, model.NewValidationError("種別名は必須です。")
	}

	t := &model.IssueType{Name: name}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	slog.Info("issue type created",
		slog.Int("type_id", t.ID),
		slog.String("name", name),
		slog.Int("created_by", actor.ID),
	)

	return t, nil
}
