package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/issuedesk/internal/auth"
	"github.com/hitoshi/issuedesk/internal/middleware"
	"github.com/hitoshi/issuedesk/internal/model"
	"github.com/hitoshi/issuedesk/internal/user"
)

// UserServiceInterface はユーザー管理ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, actor *model.User) ([]*model.User, error)
	ListUsernames(ctx context.Context) ([]*model.User, error)
	Get(ctx context.Context, actor *model.User, id int) (*model.User, error)
	Create(ctx context.Context, actor *model.User, input user.Input) (*model.User, error)
	Update(ctx context.Context, actor *model.User, id int, input user.Input) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, id int) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userRequest はユーザー作成・更新リクエストのボディ。
type userRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (req userRequest) toInput() user.Input {
	return user.Input{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
	}
}

// usernameResponse は担当者選択用の限定ビューのレスポンス。
type usernameResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// List はユーザー一覧を取得する。
// GET /api/users — 管理者には全フィールド、それ以外にはIDとユーザー名のみ
// GET /api/users?forFiltering=true — 管理者でもIDとユーザー名のみ（担当者選択用）
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	// 管理者以外は常に限定ビューを返す
	if r.URL.Query().Get("forFiltering") == "true" || !auth.IsAdmin(actor) {
		users, err := h.service.ListUsernames(r.Context())
		if err != nil {
			middleware.HandleServiceError(w, err)
			return
		}

		result := make([]usernameResponse, len(users))
		for i, u := range users {
			result[i] = usernameResponse{ID: u.ID, Username: u.Username}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
		return
	}

	users, err := h.service.List(r.Context(), actor)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	result := make([]userResponse, len(users))
	for i, u := range users {
		result[i] = toUserResponse(u)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Get はユーザー詳細を取得する。管理者専用。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("IDの指定が正しくありません。"))
		return
	}

	found, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(found))
}

// Create は新しいユーザーを作成する。管理者専用。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	created, err := h.service.Create(r.Context(), actor, req.toInput())
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(created))
}

// Update はユーザーを更新する。管理者専用。
// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("IDの指定が正しくありません。"))
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	updated, err := h.service.Update(r.Context(), actor, id, req.toInput())
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// Delete はユーザーを削除する。管理者専用。
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}

	id, err := parseIDParam(r)
	if err != nil {
		middleware.WriteError(w, model.NewValidationError("IDの指定が正しくありません。"))
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
