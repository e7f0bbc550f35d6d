package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/issuedesk/internal/model"
)

// TestWriteError_StableBody はエラーボディが {error: string} 形式であることを検証する。
func TestWriteError_StableBody(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, model.NewNotFoundError("課題"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body) != 1 {
		t.Errorf("body has %d keys, want 1 (error only)", len(body))
	}
	if _, ok := body["error"].(string); !ok {
		t.Error("body.error is not a string")
	}
}

// TestWriteError_RateLimitSetsRetryAfter はレート制限エラーでRetry-Afterが
// 付与されることを検証する。
func TestWriteError_RateLimitSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, model.NewRateLimitError(42))

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "42" {
		t.Errorf("Retry-After = %q, want %q", got, "42")
	}
}

// TestHandleServiceError_APIError はAPIErrorがそのままのステータスで返ることを検証する。
func TestHandleServiceError_APIError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, model.NewAuthorizationError())

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestHandleServiceError_WrappedAPIError はラップされたAPIErrorも展開されることを検証する。
func TestHandleServiceError_WrappedAPIError(t *testing.T) {
	w := httptest.NewRecorder()

	wrapped := errorsJoin(model.NewValidationError("タイトルは必須です"))
	HandleServiceError(w, wrapped)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("service: create issue"), err)
}

// TestHandleServiceError_UnknownError は未知のエラーが500に丸められ、
// 内部メッセージが漏れないことを検証する。
func TestHandleServiceError_UnknownError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["error"] == "pq: connection refused" {
		t.Error("internal error message leaked to client")
	}
}
