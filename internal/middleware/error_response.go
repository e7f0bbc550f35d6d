package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/issuedesk/internal/model"
)

// errorResponseBody はAPIエラーレスポンスの統一フォーマット。
// クライアントには安定した {error: string} ボディのみを返し、
// スタックトレースや内部メッセージは一切含めない。
type errorResponseBody struct {
	Error string `json:"error"`
}

// WriteError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// レート制限エラーの場合はRetry-Afterヘッダーを付与する。
func WriteError(w http.ResponseWriter, apiErr *model.APIError) {
	if apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(errorResponseBody{Error: apiErr.Message})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteError(w, model.NewInternalError())
}

// HandleServiceError はサービス層から返されたエラーを適切なレスポンスに変換する。
// *model.APIErrorはそのままステータスコード付きで返し、
// それ以外（ストア障害等）はログに記録した上でInternalErrorに丸める。
func HandleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteError(w, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}
