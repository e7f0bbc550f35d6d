package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/issuedesk/internal/issue"
	"github.com/hitoshi/issuedesk/internal/middleware"
	"github.com/hitoshi/issuedesk/internal/model"
)

// dateParamLayout はクエリパラメータの日付形式。
const dateParamLayout = "2006-01-02"

// IssueServiceInterface はIssueハンドラーが必要とするサービスインターフェース。
type IssueServiceInterface interface {
	Create(ctx context.Context, actor *model.User, input issue.Input) (*model.Issue, error)
	Get(ctx context.Context, actor *model.User, id int) (*model.Issue, error)
	Update(ctx context.Context, actor *model.User, id int, input issue.Input) (*model.Issue, error)
	Delete(ctx context.Context, actor *model.User, id int) error
	List(ctx context.Context, actor *model.User, filter model.IssueFilter, page, pageSize int) (*model.IssuePage, error)
}

// IssueHandler はIssue管理のHTTPハンドラー。
type IssueHandler struct {
	service IssueServiceInterface
}

// NewIssueHandler はIssueHandlerを生成する。
func NewIssueHandler(service IssueServiceInterface) *IssueHandler {
	return &IssueHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// issueRequest はIssue作成・更新リクエストのボディ。
type issueRequest struct {
	Title       string     `json:"title"`
	TypeID      *int       `json:"typeId"`
	Description string     `json:"description"`
	Solution    string     `json:"solution"`
	TimeIssued  *time.Time `json:"timeIssued"`
	TimeStart   *time.Time `json:"timeStart"`
	TimeFinish  *time.Time `json:"timeFinish"`
	AssignedTo  *int       `json:"assignedTo"`
}

func (req issueRequest) toInput() issue.Input {
	return issue.Input{
		Title:       req.Title,
		TypeID:      req.TypeID,
		Description: req.Description,
		Solution:    req.Solution,
		TimeIssued:  req.TimeIssued,
		TimeStart:   req.TimeStart,
		TimeFinish:  req.TimeFinish,
		AssignedTo:  req.AssignedTo,
	}
}

// issueResponse はIssueのレスポンス。
// ステータスはtime_start / time_finish から導出した値を返す。
type issueResponse struct {
	ID          int        `json:"id"`
	Title       string     `json:"title"`
	TypeID      *int       `json:"typeId"`
	TypeName    string     `json:"typeName,omitempty"`
	Description string     `json:"description"`
	Solution    string     `json:"solution"`
	Status      string     `json:"status"`
	TimeIssued  time.Time  `json:"timeIssued"`
	TimeStart   *time.Time `json:"timeStart"`
	TimeFinish  *time.Time `json:"timeFinish"`
	CreatedBy   int        `json:"createdBy"`
	AssignedTo  *int       `json:"assignedTo"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toIssueResponse(i *model.Issue) issueResponse {
	return issueResponse{
		ID:          i.ID,
		Title:       i.Title,
		TypeID:      i.TypeID,
		TypeName:    i.TypeName,
		Description: i.Description,
		Solution:    i.Solution,
		Status:      string(i.Status()),
		TimeIssued:  i.TimeIssued,
		TimeStart:   i.TimeStart,
		TimeFinish:  i.TimeFinish,
		CreatedBy:   i.CreatedBy,
		AssignedTo:  i.AssignedTo,
		CreatedAt:   i.CreatedAt,
	}
}

// issuePageResponse はIssue一覧のページネーションレスポンス。
type issuePageResponse struct {
	Issues     []issueResponse `json:"issues"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

// List はIssue一覧をフィルタ・ページネーション付きで取得する。
// GET /api/issues?page=1&pageSize=10&search=xxx&typeId=all&assignedTo=null&startDate=2025-01-01&endDate=2025-12-31
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	q := r.URL.Query()

	page, err := parseIntParam(q.Get("page"), 1)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("pageの指定が正しくありません。"))
		return
	}
	pageSize, err := parseIntParam(q.Get("pageSize"), issue.DefaultPageSize)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("pageSizeの指定が正しくありません。"))
		return
	}

	filter := model.IssueFilter{
		Search:     q.Get("search"),
		TypeID:     q.Get("typeId"),
		AssignedTo: q.Get("assignedTo"),
	}

	if filter.StartDate, err = parseDateParam(q.Get("startDate")); err != nil {
		middleware.WriteError(w, model.NewValidationError("startDateはYYYY-MM-DD形式で指定してください。"))
		return
	}
	if filter.EndDate, err = parseDateParam(q.Get("endDate")); err != nil {
		middleware.WriteError(w, model.NewValidationError("endDateはYYYY-MM-DD形式で指定してください。"))
		return
	}

	result, err := h.service.List(r.Context(), user, filter, page, pageSize)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	issues := make([]issueResponse, len(result.Issues))
	for i, iss := range result.Issues {
		issues[i] = toIssueResponse(iss)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issuePageResponse{
		Issues:     issues,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

// Get はIssue詳細を取得する。
// GET /api/issues/{id}
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("IDの指定が正しくありません。"))
		return
	}

	result, err := h.service.Get(r.Context(), user, id)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toIssueResponse(result))
}

// Create は新しいIssueを作成する。
// POST /api/issues
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	result, err := h.service.Create(r.Context(), user, req.toInput())
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toIssueResponse(result))
}

// Update はIssueを更新する。
// PUT /api/issues/{id}
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("IDの指定が正しくありません。"))
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	result, err := h.service.Update(r.Context(), user, id, req.toInput())
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toIssueResponse(result))
}

// Delete はIssueを削除する。
// DELETE /api/issues/{id}
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("IDの指定が正しくありません。"))
		return
	}

	if err := h.service.Delete(r.Context(), user, id); err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- クエリパラメータのパースヘルパー ---

// parseIntParam は正の整数パラメータをパースする。空文字列はデフォルト値を返す。
func parseIntParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// parseDateParam はYYYY-MM-DD形式の日付パラメータをパースする。
// 空文字列はnilを返す。
func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateParamLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseIDParam はURLパスの{id}を整数としてパースする。
func parseIDParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}
