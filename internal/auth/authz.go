package auth

import "github.com/hitoshi/issuedesk/internal/model"

// 認可判定は解決済みのアイデンティティとリソースのフィールドのみから決まる
// 純粋関数であり、I/Oを行わない。

// IsAdmin はユーザーが管理者ロールかどうかを判定する。
func IsAdmin(user *model.User) bool {
	return user != nil && user.Role == model.RoleAdmin
}

// CanManage はIssueの編集・削除権限を判定する。
// 管理者、または作成者本人のみがtrue。
// 所有権は作成者で定義され、担当者には管理権限はない。
func CanManage(user *model.User, resourceOwnerID int) bool {
	if user == nil {
		return false
	}
	return user.Role == model.RoleAdmin || user.ID == resourceOwnerID
}

// CanView はIssueの閲覧権限を判定する。
// 管理者、作成者、担当者のいずれかであればtrue。
// 管理権限より広い範囲に閲覧を許可する。
func CanView(user *model.User, issue *model.Issue) bool {
	if user == nil || issue == nil {
		return false
	}
	if user.Role == model.RoleAdmin || user.ID == issue.CreatedBy {
		return true
	}
	return issue.AssignedTo != nil && *issue.AssignedTo == user.ID
}
