package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/issuedesk/internal/model"
)

// mockUserRepo はrepository.UserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFunc      func(ctx context.Context, id int) (*model.User, error)
	findByEmailFunc   func(ctx context.Context, email string) (*model.User, error)
	createFunc        func(ctx context.Context, user *model.User) error
	updateFunc        func(ctx context.Context, user *model.User) error
	deleteByIDFunc    func(ctx context.Context, id int) error
	listFunc          func(ctx context.Context) ([]*model.User, error)
	listUsernamesFunc func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findByEmailFunc(ctx, email)
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	return m.updateFunc(ctx, user)
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id int) error {
	return m.deleteByIDFunc(ctx, id)
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.User, error) {
	return m.listFunc(ctx)
}

func (m *mockUserRepo) ListUsernames(ctx context.Context) ([]*model.User, error) {
	return m.listUsernamesFunc(ctx)
}

// mockIssueRepo はrepository.IssueRepositoryのモック実装。
// ユーザー削除のガード条件に関わるメソッドのみを使用する。
type mockIssueRepo struct {
	findByIDFunc       func(ctx context.Context, id int) (*model.Issue, error)
	createFunc         func(ctx context.Context, issue *model.Issue) error
	updateFunc         func(ctx context.Context, issue *model.Issue) error
	deleteByIDFunc     func(ctx context.Context, id int) error
	listFunc           func(ctx context.Context, filter model.IssueFilter, page, pageSize int, scopeUserID *int) (*model.IssuePage, error)
	countCreatedByFunc func(ctx context.Context, userID int) (int, error)
	clearAssigneeFunc  func(ctx context.Context, userID int) error
}

func (m *mockIssueRepo) FindByID(ctx context.Context, id int) (*model.Issue, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockIssueRepo) Create(ctx context.Context, issue *model.Issue) error {
	return m.createFunc(ctx, issue)
}

func (m *mockIssueRepo) Update(ctx context.Context, issue *model.Issue) error {
	return m.updateFunc(ctx, issue)
}

func (m *mockIssueRepo) DeleteByID(ctx context.Context, id int) error {
	return m.deleteByIDFunc(ctx, id)
}

func (m *mockIssueRepo) List(ctx context.Context, filter model.IssueFilter, page, pageSize int, scopeUserID *int) (*model.IssuePage, error) {
	return m.listFunc(ctx, filter, page, pageSize, scopeUserID)
}

func (m *mockIssueRepo) CountCreatedBy(ctx context.Context, userID int) (int, error) {
	return m.countCreatedByFunc(ctx, userID)
}

func (m *mockIssueRepo) ClearAssignee(ctx context.Context, userID int) error {
	return m.clearAssigneeFunc(ctx, userID)
}

// mockHasher はPasswordHasherのモック実装。
type mockHasher struct{}

func (m *mockHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

var (
	adminUser   = &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}
	regularUser = &model.User{ID: 2, Username: "tanaka", Role: model.RoleUser}
)

// TestList_AdminOnly は一覧取得が管理者専用であることを検証する。
func TestList_AdminOnly(t *testing.T) {
	repo := &mockUserRepo{
		listFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{adminUser, regularUser}, nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	users, err := s.List(context.Background(), adminUser)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("len(users) = %d, want 2", len(users))
	}

	_, err = s.List(context.Background(), regularUser)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Errorf("regular user: err = %v, want 403 APIError", err)
	}
}

// TestListUsernames_AnyAuthenticatedUser は限定ビューが一般ユーザーにも
// 許可されることを検証する。
func TestListUsernames_AnyAuthenticatedUser(t *testing.T) {
	repo := &mockUserRepo{
		listUsernamesFunc: func(ctx context.Context) ([]*model.User, error) {
			return []*model.User{{ID: 1, Username: "admin"}}, nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	users, err := s.ListUsernames(context.Background())
	if err != nil {
		t.Fatalf("ListUsernames returned error: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
}

// TestGet_AdminOnly は詳細取得が管理者専用であることを検証する。
func TestGet_AdminOnly(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return regularUser, nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	got, err := s.Get(context.Background(), adminUser, 2)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("got.ID = %d, want 2", got.ID)
	}

	_, err = s.Get(context.Background(), regularUser, 2)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Errorf("regular user: err = %v, want 403 APIError", err)
	}
}

// TestGet_NotFound は存在しないユーザーの取得が404になることを検証する。
func TestGet_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return nil, nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	_, err := s.Get(context.Background(), adminUser, 99)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("err = %v, want 404 APIError", err)
	}
}

// TestCreate_Success は管理者がロール指定付きでユーザーを作成できることを検証する。
func TestCreate_Success(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		createFunc: func(ctx context.Context, user *model.User) error {
			user.ID = 10
			saved = user
			return nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	u, err := s.Create(context.Background(), adminUser, Input{
		Username: "suzuki",
		Email:    "suzuki@example.com",
		Password: "password123",
		Role:     model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if u.ID != 10 {
		t.Errorf("user.ID = %d, want 10", u.ID)
	}
	if saved.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", saved.Role)
	}
	if saved.PasswordHash != "hashed:password123" {
		t.Errorf("password was not hashed: %q", saved.PasswordHash)
	}
}

// TestCreate_NonAdminForbidden は一般ユーザーによる作成が403になることを検証する。
func TestCreate_NonAdminForbidden(t *testing.T) {
	s := NewService(&mockUserRepo{}, &mockIssueRepo{}, &mockHasher{})

	_, err := s.Create(context.Background(), regularUser, Input{
		Username: "x", Email: "x@y.co", Password: "password", Role: model.RoleUser,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Errorf("err = %v, want 403 APIError", err)
	}
}

// TestCreate_ValidationErrors は入力検証が400で失敗することを検証する。
func TestCreate_ValidationErrors(t *testing.T) {
	s := NewService(&mockUserRepo{}, &mockIssueRepo{}, &mockHasher{})

	tests := []struct {
		name  string
		input Input
	}{
		{"missing username", Input{Email: "a@b.co", Password: "password", Role: model.RoleUser}},
		{"invalid email", Input{Username: "x", Email: "bad", Password: "password", Role: model.RoleUser}},
		{"short password", Input{Username: "x", Email: "a@b.co", Password: "12345", Role: model.RoleUser}},
		{"invalid role", Input{Username: "x", Email: "a@b.co", Password: "password", Role: "superuser"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), adminUser, tt.input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *model.APIError", err)
			}
			if apiErr.Status != 400 {
				t.Errorf("status = %d, want 400", apiErr.Status)
			}
		})
	}
}

// TestUpdate_PasswordOptional はパスワード未指定時に既存ハッシュが
// 据え置かれることを検証する。
func TestUpdate_PasswordOptional(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return &model.User{ID: id, Username: "old", Email: "old@example.com",
				PasswordHash: "existing-hash", Role: model.RoleUser}, nil
		},
		updateFunc: func(ctx context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	_, err := s.Update(context.Background(), adminUser, 5, Input{
		Username: "new", Email: "new@example.com", Role: model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if saved.PasswordHash != "existing-hash" {
		t.Errorf("PasswordHash = %q, want existing-hash (unchanged)", saved.PasswordHash)
	}
	if saved.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", saved.Role)
	}
}

// TestUpdate_PasswordChanged はパスワード指定時に再ハッシュされることを検証する。
func TestUpdate_PasswordChanged(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return &model.User{ID: id, Username: "old", Email: "old@example.com",
				PasswordHash: "existing-hash", Role: model.RoleUser}, nil
		},
		updateFunc: func(ctx context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	_, err := s.Update(context.Background(), adminUser, 5, Input{
		Username: "new", Email: "new@example.com", Password: "newpassword", Role: model.RoleUser,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if saved.PasswordHash != "hashed:newpassword" {
		t.Errorf("PasswordHash = %q, want rehashed value", saved.PasswordHash)
	}
}

// TestUpdate_NotFound は存在しないユーザーの更新が404になることを検証する。
func TestUpdate_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return nil, nil
		},
	}
	s := NewService(repo, &mockIssueRepo{}, &mockHasher{})

	_, err := s.Update(context.Background(), adminUser, 999, Input{
		Username: "x", Email: "a@b.co", Role: model.RoleUser,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("err = %v, want 404 APIError", err)
	}
}

// TestDelete_Success は削除前に担当割り当てが解除されることを検証する。
func TestDelete_Success(t *testing.T) {
	cleared := false
	deleted := false
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleUser}, nil
		},
		deleteByIDFunc: func(ctx context.Context, id int) error {
			if !cleared {
				t.Error("assignments must be cleared before deleting the user")
			}
			deleted = true
			return nil
		},
	}
	issueRepo := &mockIssueRepo{
		countCreatedByFunc: func(ctx context.Context, userID int) (int, error) {
			return 0, nil
		},
		clearAssigneeFunc: func(ctx context.Context, userID int) error {
			cleared = true
			return nil
		},
	}
	s := NewService(userRepo, issueRepo, &mockHasher{})

	if err := s.Delete(context.Background(), adminUser, 5); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if !deleted {
		t.Error("user was not deleted")
	}
}

// TestDelete_SelfForbidden は自分自身の削除が拒否されることを検証する。
func TestDelete_SelfForbidden(t *testing.T) {
	s := NewService(&mockUserRepo{}, &mockIssueRepo{}, &mockHasher{})

	err := s.Delete(context.Background(), adminUser, adminUser.ID)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if apiErr.Status != 400 {
		t.Errorf("status = %d, want 400", apiErr.Status)
	}
}

// TestDelete_RefusesWhenUserHasCreatedIssues は作成Issueが残っている
// ユーザーの削除が拒否されることを検証する。
func TestDelete_RefusesWhenUserHasCreatedIssues(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleUser}, nil
		},
		deleteByIDFunc: func(ctx context.Context, id int) error {
			t.Fatal("delete should not be called")
			return nil
		},
	}
	issueRepo := &mockIssueRepo{
		countCreatedByFunc: func(ctx context.Context, userID int) (int, error) {
			return 3, nil
		},
		clearAssigneeFunc: func(ctx context.Context, userID int) error {
			t.Fatal("clearAssignee should not be called")
			return nil
		},
	}
	s := NewService(userRepo, issueRepo, &mockHasher{})

	err := s.Delete(context.Background(), adminUser, 5)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if apiErr.Status != 400 {
		t.Errorf("status = %d, want 400", apiErr.Status)
	}
}

// TestDelete_NonAdminForbidden は一般ユーザーによる削除が403になることを検証する。
func TestDelete_NonAdminForbidden(t *testing.T) {
	s := NewService(&mockUserRepo{}, &mockIssueRepo{}, &mockHasher{})

	err := s.Delete(context.Background(), regularUser, 5)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Errorf("err = %v, want 403 APIError", err)
	}
}

// TestDelete_NotFound は存在しないユーザーの削除が404になることを検証する。
func TestDelete_NotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int) (*model.User, error) {
			return nil, nil
		},
	}
	s := NewService(userRepo, &mockIssueRepo{}, &mockHasher{})

	err := s.Delete(context.Background(), adminUser, 999)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("err = %v, want 404 APIError", err)
	}
}
