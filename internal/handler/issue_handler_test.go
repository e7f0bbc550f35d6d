package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/issuedesk/internal/issue"
	"github.com/hitoshi/issuedesk/internal/middleware"
	"github.com/hitoshi/issuedesk/internal/model"
)

// mockIssueService はIssueServiceInterfaceのモック実装。
type mockIssueService struct {
	createFunc func(ctx context.Context, actor *model.User, input issue.Input) (*model.Issue, error)
	getFunc    func(ctx context.Context, actor *model.User, id int) (*model.Issue, error)
	updateFunc func(ctx context.Context, actor *model.User, id int, input issue.Input) (*model.Issue, error)
	deleteFunc func(ctx context.Context, actor *model.User, id int) error
	listFunc   func(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error)
}

func (m *mockIssueService) Create(ctx context.Context, actor *model.User, input issue.Input) (*model.Issue, error) {
	return m.createFunc(ctx, actor, input)
}

func (m *mockIssueService) Get(ctx context.Context, actor *model.User, id int) (*model.Issue, error) {
	return m.getFunc(ctx, actor, id)
}

func (m *mockIssueService) Update(ctx context.Context, actor *model.User, id int, input issue.Input) (*model.Issue, error) {
	return m.updateFunc(ctx, actor, id, input)
}

func (m *mockIssueService) Delete(ctx context.Context, actor *model.User, id int) error {
	return m.deleteFunc(ctx, actor, id)
}

func (m *mockIssueService) List(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error) {
	return m.listFunc(ctx, actor, filter, page, pageSize)
}

var testActor = &model.User{ID: 5, Username: "tanaka", Role: model.RoleUser}

// withUser はリクエストコンテキストにユーザーを注入する。
func withUser(req *http.Request, u *model.User) *http.Request {
	return req.WithContext(middleware.ContextWithUser(req.Context(), u))
}

// withURLParam はchiのURLパラメータをリクエストに注入する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// TestIssueList_ParsesQueryParams はクエリパラメータがフィルタに
// 変換されることを検証する。
func TestIssueList_ParsesQueryParams(t *testing.T) {
	service := &mockIssueService{
		listFunc: func(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error) {
			if page != 2 || pageSize != 20 {
				t.Errorf("page/pageSize = %d/%d, want 2/20", page, pageSize)
			}
			if filter.Search != "ログイン" {
				t.Errorf("Search = %q", filter.Search)
			}
			if filter.TypeID != "3" {
				t.Errorf("TypeID = %q", filter.TypeID)
			}
			if filter.AssignedTo != "null" {
				t.Errorf("AssignedTo = %q", filter.AssignedTo)
			}
			if filter.StartDate == nil || !filter.StartDate.Equal(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("StartDate = %v", filter.StartDate)
			}
			if filter.EndDate == nil || !filter.EndDate.Equal(time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)) {
				t.Errorf("EndDate = %v", filter.EndDate)
			}
			return &model.IssuePage{Issues: nil, Total: 0, Page: page, PageSize: pageSize}, nil
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodGet,
		"/api/issues?page=2&pageSize=20&search=ログイン&typeId=3&assignedTo=null&startDate=2025-05-01&endDate=2025-05-31", nil)
	req = withUser(req, testActor)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

// TestIssueList_InvalidDateParam は不正な日付指定が400になることを検証する。
func TestIssueList_InvalidDateParam(t *testing.T) {
	service := &mockIssueService{
		listFunc: func(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/issues?startDate=05-01-2025", nil)
	req = withUser(req, testActor)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestIssueList_ResponseShape はページネーションレスポンスの形を検証する。
func TestIssueList_ResponseShape(t *testing.T) {
	start := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	service := &mockIssueService{
		listFunc: func(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error) {
			return &model.IssuePage{
				Issues: []*model.Issue{
					{ID: 1, Title: "未着手の課題", CreatedBy: 5},
					{ID: 2, Title: "対応中の課題", CreatedBy: 5, TimeStart: &start},
				},
				Total:      12,
				Page:       1,
				PageSize:   10,
				TotalPages: 2,
			}, nil
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/issues", nil)
	req = withUser(req, testActor)
	w := httptest.NewRecorder()

	h.List(w, req)

	var resp issuePageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Total != 12 || resp.TotalPages != 2 {
		t.Errorf("total/totalPages = %d/%d, want 12/2", resp.Total, resp.TotalPages)
	}
	if len(resp.Issues) != 2 {
		t.Fatalf("len(issues) = %d, want 2", len(resp.Issues))
	}
	// ステータスはタイムスタンプから導出される
	if resp.Issues[0].Status != string(model.StatusOpen) {
		t.Errorf("issues[0].status = %q, want Open", resp.Issues[0].Status)
	}
	if resp.Issues[1].Status != string(model.StatusInProgress) {
		t.Errorf("issues[1].status = %q, want In Progress", resp.Issues[1].Status)
	}
}

// TestIssueGet_Success はIssue詳細の取得を検証する。
func TestIssueGet_Success(t *testing.T) {
	service := &mockIssueService{
		getFunc: func(ctx context.Context, actor *model.User, id int) (*model.Issue, error) {
			if id != 42 {
				t.Errorf("id = %d, want 42", id)
			}
			return &model.Issue{ID: 42, Title: "課題", TypeName: "バグ", CreatedBy: 5}, nil
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/issues/42", nil)
	req = withUser(req, testActor)
	req = withURLParam(req, "id", "42")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp issueResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.ID != 42 || resp.TypeName != "バグ" {
		t.Errorf("resp = %+v", resp)
	}
}

// TestIssueGet_InvalidID は数値でないIDが400になることを検証する。
func TestIssueGet_InvalidID(t *testing.T) {
	service := &mockIssueService{
		getFunc: func(ctx context.Context, actor *model.User, id int) (*model.Issue, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/issues/abc", nil)
	req = withUser(req, testActor)
	req = withURLParam(req, "id", "abc")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestIssueGet_Forbidden はサービスの403がそのまま返ることを検証する。
func TestIssueGet_Forbidden(t *testing.T) {
	service := &mockIssueService{
		getFunc: func(ctx context.Context, actor *model.User, id int) (*model.Issue, error) {
			return nil, model.NewAuthorizationError()
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/issues/42", nil)
	req = withUser(req, testActor)
	req = withURLParam(req, "id", "42")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestIssueCreate_Returns201 は作成成功時に201とIssueが返ることを検証する。
func TestIssueCreate_Returns201(t *testing.T) {
	service := &mockIssueService{
		createFunc: func(ctx context.Context, actor *model.User, input issue.Input) (*model.Issue, error) {
			if actor.ID != testActor.ID {
				t.Errorf("actor.ID = %d, want %d", actor.ID, testActor.ID)
			}
			if input.Title != "新しい課題" {
				t.Errorf("title = %q", input.Title)
			}
			if input.TypeID == nil || *input.TypeID != 2 {
				t.Errorf("typeId = %v, want 2", input.TypeID)
			}
			return &model.Issue{ID: 1, Title: input.Title, TypeID: input.TypeID, CreatedBy: actor.ID}, nil
		},
	}
	h := NewIssueHandler(service)

	body := `{"title":"新しい課題","typeId":2,"description":"<p>詳細</p>"}`
	req := httptest.NewRequest(http.MethodPost, "/api/issues", strings.NewReader(body))
	req = withUser(req, testActor)
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	var resp issueResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.CreatedBy != testActor.ID {
		t.Errorf("createdBy = %d, want %d", resp.CreatedBy, testActor.ID)
	}
}

// TestIssueUpdate_Success は更新成功時に更新後のIssueが返ることを検証する。
func TestIssueUpdate_Success(t *testing.T) {
	service := &mockIssueService{
		updateFunc: func(ctx context.Context, actor *model.User, id int, input issue.Input) (*model.Issue, error) {
			return &model.Issue{ID: id, Title: input.Title, CreatedBy: 5, AssignedTo: input.AssignedTo}, nil
		},
	}
	h := NewIssueHandler(service)

	body := `{"title":"更新後","assignedTo":7}`
	req := httptest.NewRequest(http.MethodPut, "/api/issues/42", strings.NewReader(body))
	req = withUser(req, testActor)
	req = withURLParam(req, "id", "42")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp issueResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Title != "更新後" {
		t.Errorf("title = %q", resp.Title)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != 7 {
		t.Errorf("assignedTo = %v, want 7", resp.AssignedTo)
	}
}

// TestIssueDelete_Returns204 は削除成功時に204が返ることを検証する。
func TestIssueDelete_Returns204(t *testing.T) {
	service := &mockIssueService{
		deleteFunc: func(ctx context.Context, actor *model.User, id int) error {
			if id != 42 {
				t.Errorf("id = %d, want 42", id)
			}
			return nil
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/issues/42", nil)
	req = withUser(req, testActor)
	req = withURLParam(req, "id", "42")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

// TestIssueDelete_NotFound は存在しないIssueの削除が404になることを検証する。
func TestIssueDelete_NotFound(t *testing.T) {
	service := &mockIssueService{
		deleteFunc: func(ctx context.Context, actor *model.User, id int) error {
			return model.NewNotFoundError("課題")
		},
	}
	h := NewIssueHandler(service)

	req := httptest.NewRequest(http.MethodDelete, "/api/issues/999", nil)
	req = withUser(req, testActor)
	req = withURLParam(req, "id", "999")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
