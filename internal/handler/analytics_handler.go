package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/issuedesk/internal/auth"
	"github.com/hitoshi/issuedesk/internal/middleware"
	"github.com/hitoshi/issuedesk/internal/model"
	"github.com/hitoshi/issuedesk/internal/repository"
)

// AnalyticsHandler はダッシュボード用の集計APIのHTTPハンドラー。
// 集計は全Issueを対象とするため管理者専用。
type AnalyticsHandler struct {
	repo repository.AnalyticsRepository
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(repo repository.AnalyticsRepository) *AnalyticsHandler {
	return &AnalyticsHandler{repo: repo}
}

// countResponse は名前付き件数のレスポンス。
type countResponse struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// monthCountResponse は月別件数のレスポンス。
type monthCountResponse struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// analyticsResponse は集計結果のレスポンス。
type analyticsResponse struct {
	ByType   []countResponse      `json:"byType"`
	ByStatus []countResponse      `json:"byStatus"`
	ByMonth  []monthCountResponse `json:"byMonth"`
}

// Get はIssueの集計結果を返す。
// GET /api/analytics
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, model.NewAuthenticationError())
		return
	}
	if !auth.IsAdmin(actor) {
		middleware.WriteError(w, model.NewAuthorizationError())
		return
	}

	ctx := r.Context()

	byType, err := h.repo.CountByType(ctx)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	byStatus, err := h.repo.CountByStatus(ctx)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	byMonth, err := h.repo.CountByMonth(ctx)
	if err != nil {
		middleware.HandleServiceError(w, err)
		return
	}

	resp := analyticsResponse{
		ByType:   make([]countResponse, len(byType)),
		ByStatus: make([]countResponse, len(byStatus)),
		ByMonth:  make([]monthCountResponse, len(byMonth)),
	}
	for i, c := range byType {
		resp.ByType[i] = countResponse{Name: c.Name, Count: c.Count}
	}
	for i, c := range byStatus {
		resp.ByStatus[i] = countResponse{Name: c.Name, Count: c.Count}
	}
	for i, c := range byMonth {
		resp.ByMonth[i] = monthCountResponse{
			Month: c.Month.Format("2006-01"),
			Count: c.Count,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// NewHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// pingにはDB接続の死活確認関数を渡す。nilの場合はプロセス生存のみを報告する。
// GET /health
func NewHealthHandler(ping func() error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(); err != nil {
				middleware.WriteError(w, model.NewInternalError())
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{
			Status: "ok",
			Time:   time.Now(),
		})
	})
}
