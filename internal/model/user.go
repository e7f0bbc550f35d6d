// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。閉じた集合であり、
// admin と user 以外の値は書き込み時に拒否される。
type Role string

const (
	// RoleAdmin は管理者ロール。全リソースへのアクセスとユーザー管理が可能。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザーロール。自分が作成・担当するIssueのみ操作可能。
	RoleUser Role = "user"
)

// Valid はロールが定義済みの値かどうかを判定する。
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User はサービス利用ユーザーを表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには含めない。
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin は管理者ロールかどうかを判定する。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
