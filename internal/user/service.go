// Package user はユーザー管理のドメインロジックを提供する。
// 一覧・作成・更新・削除はすべて管理者専用の操作。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hitoshi/issuedesk/internal/auth"
	"github.com/hitoshi/issuedesk/internal/model"
	"github.com/hitoshi/issuedesk/internal/repository"
)

// emailPattern はメールアドレス形式の簡易検証パターン。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 6

// PasswordHasher はパスワードのハッシュ化インターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	issueRepo repository.IssueRepository
	hasher    PasswordHasher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	issueRepo repository.IssueRepository,
	hasher PasswordHasher,
) *Service {
	return &Service{
		userRepo:  userRepo,
		issueRepo: issueRepo,
		hasher:    hasher,
	}
}

// Input はユーザーの作成・更新の入力。
type Input struct {
	Username string
	Email    string
	Password string // 更新時は空文字列で据え置き
	Role     model.Role
}

// List は全ユーザーを作成日時の降順で返す。管理者専用。
func (s *Service) List(ctx context.Context, actor *model.User) ([]*model.User, error) {
	if !auth.IsAdmin(actor) {
		return nil, model.NewAuthorizationError()
	}
	return s.userRepo.List(ctx)
}

// ListUsernames は全ユーザーのIDとユーザー名のみを返す。
// 担当者選択・フィルタ用の限定ビューであり、認証済みであれば誰でも参照できる。
func (s *Service) ListUsernames(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.ListUsernames(ctx)
}

// Get は指定IDのユーザーを返す。管理者専用。
func (s *Service) Get(ctx context.Context, actor *model.User, id int) (*model.User, error) {
	if !auth.IsAdmin(actor) {
		return nil, model.NewAuthorizationError()
	}

	target, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, model.NewNotFoundError("ユーザー")
	}
	return target, nil
}

// Create は新しいユーザーを作成する。管理者専用。
// 一般登録（auth.Service.Register）と異なり、ロールを指定できる。
func (s *Service) Create(ctx context.Context, actor *model.User, input Input) (*model.User, error) {
	if !auth.IsAdmin(actor) {
		return nil, model.NewAuthorizationError()
	}

	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, model.NewValidationError("ユーザー名、メールアドレス、パスワードは必須です。")
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if len(input.Password) < minPasswordLength {
		return nil, model.NewValidationError(
			fmt.Sprintf("パスワードは%d文字以上で指定してください。", minPasswordLength))
	}
	if !input.Role.Valid() {
		return nil, model.NewValidationError("ロールの指定が正しくありません。")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	slog.Info("user created by admin",
		slog.Int("user_id", u.ID),
		slog.String("role", string(u.Role)),
		slog.Int("created_by", actor.ID),
	)

	return u, nil
}

// Update はユーザーのプロフィール・ロール・パスワードを更新する。管理者専用。
// パスワードは指定された場合のみ更新する。
func (s *Service) Update(ctx context.Context, actor *model.User, id int, input Input) (*model.User, error) {
	if !auth.IsAdmin(actor) {
		return nil, model.NewAuthorizationError()
	}

	target, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, model.NewNotFoundError("ユーザー")
	}

	if input.Username == "" || input.Email == "" {
		return nil, model.NewValidationError("ユーザー名とメールアドレスは必須です。")
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if !input.Role.Valid() {
		return nil, model.NewValidationError("ロールの指定が正しくありません。")
	}

	target.Username = input.Username
	target.Email = input.Email
	target.Role = input.Role

	if input.Password != "" {
		if len(input.Password) < minPasswordLength {
			return nil, model.NewValidationError(
				fmt.Sprintf("パスワードは%d文字以上で指定してください。", minPasswordLength))
		}
		hash, err := s.hasher.Hash(input.Password)
		if err != nil {
			return nil, err
		}
		target.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	slog.Info("user updated by admin",
		slog.Int("user_id", target.ID),
		slog.String("role", string(target.Role)),
		slog.Int("updated_by", actor.ID),
	)

	return target, nil
}

// Delete はユーザーを削除する。管理者専用。
//
// ガード条件:
//   - 自分自身は削除できない
//   - 削除対象が作成したIssueが残っている場合は削除を拒否する
//
// 削除前に対象ユーザーへの担当割り当てをすべて解除する。
func (s *Service) Delete(ctx context.Context, actor *model.User, id int) error {
	if !auth.IsAdmin(actor) {
		return model.NewAuthorizationError()
	}
	if actor.ID == id {
		return model.NewValidationError("自分自身は削除できません。")
	}

	target, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return model.NewNotFoundError("ユーザー")
	}

	created, err := s.issueRepo.CountCreatedBy(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count issues created by user: %w", err)
	}
	if created > 0 {
		return model.NewValidationError(
			fmt.Sprintf("このユーザーが作成した課題が%d件残っているため削除できません。", created))
	}

	// 担当割り当てを解除してから削除する
	if err := s.issueRepo.ClearAssignee(ctx, id); err != nil {
		return fmt.Errorf("failed to clear issue assignments: %w", err)
	}

	if err := s.userRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	slog.Info("user deleted by admin",
		slog.Int("user_id", id),
		slog.Int("deleted_by", actor.ID),
	)

	return nil
}
