package auth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/hitoshi/issuedesk/internal/model"
	"github.com/hitoshi/issuedesk/internal/repository"
)

// emailPattern はメールアドレス形式の簡易検証パターン。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 6

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	hasher   *PasswordHasher
	tokens   *TokenService
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, hasher *PasswordHasher, tokens *TokenService) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// Login はメールアドレスとパスワードで認証し、セッショントークンを発行する。
// ユーザー不存在とパスワード不一致は区別せず、同一のエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if email == "" || password == "" {
		return nil, "", model.NewValidationError("メールアドレスとパスワードは必須です。")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("user logged in",
		slog.Int("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return user, token, nil
}

// Register は新規ユーザーを一般ユーザーロールで登録し、セッショントークンを発行する。
// username / email の重複はConflictエラーとして返る。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, string, error) {
	if username == "" || email == "" || password == "" {
		return nil, "", model.NewValidationError("ユーザー名、メールアドレス、パスワードは必須です。")
	}
	if !emailPattern.MatchString(email) {
		return nil, "", model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if len(password) < minPasswordLength {
		return nil, "", model.NewValidationError(
			fmt.Sprintf("パスワードは%d文字以上で指定してください。", minPasswordLength))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("new user registered",
		slog.Int("user_id", user.ID),
		slog.String("username", username),
	)

	return user, token, nil
}

// ResolveUser はセッショントークンからユーザーを解決する。
// トークン検証後、ユーザーレコード全体をストアから再読込する。
// トークン内のロールは信用せず、発行後のロール変更を即座に反映させるため。
// いかなる失敗（不正・期限切れトークン、ユーザー不存在）でもnilを返し、
// 呼び出し側は一律に未認証として扱う。
func (s *Service) ResolveUser(ctx context.Context, tokenString string) *model.User {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return nil
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		slog.Error("failed to load user during session resolution",
			slog.Int("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}
