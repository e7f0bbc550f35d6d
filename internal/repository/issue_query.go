package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hitoshi/issuedesk/internal/model"
)

// buildIssueWhere はIssue一覧のWHERE句をバインドパラメータ付きで組み立てる。
// 返り値のWHERE句は件数取得と行取得の両クエリで共有され、
// totalPagesと表示行の整合性を保証する。
//
// scopeUserIDが非nilの場合、(created_by = scope OR assigned_to = scope) の
// スコープ句を無条件にANDで追加する。クライアント入力でこの句を
// 回避することはできない。
//
// ユーザー入力はすべてバインドパラメータとして渡し、クエリ文字列には
// 一切埋め込まない。条件が1つもない場合は空文字列を返す。
func buildIssueWhere(filter model.IssueFilter, scopeUserID *int) (string, []any, error) {
	var conds []string
	var args []any

	// フリーテキスト検索: タイトルまたは説明への部分一致（大文字小文字を区別しない）
	if filter.Search != "" {
		pattern := "%" + escapeLikePattern(filter.Search) + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(i.title ILIKE $%d OR i.description ILIKE $%d)", n, n))
	}

	// 種別フィルタ: "all" または空文字列はフィルタなし
	if filter.TypeID != "" && filter.TypeID != model.FilterAll {
		typeID, err := strconv.Atoi(filter.TypeID)
		if err != nil {
			return "", nil, model.NewValidationError("種別IDの形式が正しくありません。")
		}
		args = append(args, typeID)
		conds = append(conds, fmt.Sprintf("i.issue_type_id = $%d", len(args)))
	}

	// 担当者フィルタ: "all"はフィルタなし、"null"は未割り当てのみ
	switch filter.AssignedTo {
	case "", model.FilterAll:
		// フィルタなし
	case model.FilterUnassigned:
		conds = append(conds, "i.assigned_to IS NULL")
	default:
		assigneeID, err := strconv.Atoi(filter.AssignedTo)
		if err != nil {
			return "", nil, model.NewValidationError("担当者IDの形式が正しくありません。")
		}
		args = append(args, assigneeID)
		conds = append(conds, fmt.Sprintf("i.assigned_to = $%d", len(args)))
	}

	// 日付範囲: time_issued の両端を含む
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conds = append(conds, fmt.Sprintf("i.time_issued >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conds = append(conds, fmt.Sprintf("i.time_issued <= $%d", len(args)))
	}

	// スコープ句: 非管理者には自分が作成または担当するIssueのみを強制する
	if scopeUserID != nil {
		args = append(args, *scopeUserID)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(i.created_by = $%d OR i.assigned_to = $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// escapeLikePattern はLIKE/ILIKEパターンのメタ文字をエスケープする。
// 検索文字列中の % と _ をリテラルとして扱う。
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
