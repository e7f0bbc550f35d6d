package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/issuedesk/internal/middleware"
	"github.com/hitoshi/issuedesk/internal/model"
)

// IssueTypeServiceInterface はIssue種別ハンドラーが必要とするサービスインターフェース。
type IssueTypeServiceInterface interface {
	List(ctx context.Context) ([]*model.IssueType, error)
	Create(ctx context.Context, actor *model.User, name string) (*model.IssueType, error)
}

// IssueTypeHandler はIssue種別管理のHTTPハンドラー。
type IssueTypeHandler struct {
	service IssueTypeServiceInterface
}

// NewIssueTypeHandler はIssueTypeHandlerを生成する。
func NewIssueTypeHandler(service IssueTypeServiceInterface) *IssueTypeHandler {
	return &IssueTypeHandler{service: service}
}

// issueTypeRequest は種別作成リクエストのボディ。
type issueTypeRequest struct {
	Name string `json:"name"`
}

// issueTypeResponse は種別のレスポンス。
type issueTypeResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// List は全種別を名前の昇順で取得する。
// GET /api/issue-types
func (h *IssueTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.List(r.Context())
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	result := make([]issueTypeResponse, len(types))
	for i, t := range types {
		result[i] = issueTypeResponse{ID: t.ID, Name: t.Name}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Create は新しい種別を作成する。管理者専用。
// POST /api/issue-types
func (h *IssueTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	var req issueTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	created, err := h.service.Create(r.Context(), user, req.Name)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(issueTypeResponse{ID: created.ID, Name: created.Name})
}
