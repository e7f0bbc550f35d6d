package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/issuedesk/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolationCode = "23505"

// translateUniqueViolation は一意制約違反をフィールド別のConflictエラーに変換する。
// 変換対象でない場合はnilを返し、呼び出し側は元のエラーをそのまま伝搬する。
// ストアのエラー文字列をパターンマッチするのではなく、ドライバが公開する
// SQLSTATEと制約名でここ1箇所だけで判定する。
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolationCode {
		return nil
	}

	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return model.NewConflictError("ユーザー名")
	case strings.Contains(pqErr.Constraint, "email"):
		return model.NewConflictError("メールアドレス")
	case strings.Contains(pqErr.Constraint, "type_name"):
		return model.NewConflictError("種別名")
	default:
		return model.NewConflictError("値")
	}
}
