// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザーのロール。新規登録時のデフォルト値。
	RoleUser Role = "user"
	// RoleAdmin は管理者ロール。/admin配下へのアクセスを許可する。
	RoleAdmin Role = "admin"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  string
	Role          Role
	EmailVerified bool
	Banned        bool
	BanReason     string
	BanExpires    *time.Time // nilの場合は無期限BAN
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAdmin はユーザーが管理者ロールを持つかどうかを返す。
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBanned は指定時刻においてBANが有効かどうかを返す。
// BanExpiresがnilの場合は無期限BANとして扱う。
func (u *User) IsBanned(now time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanExpires == nil {
		return true
	}
	return now.Before(*u.BanExpires)
}

// Session はユーザーのログインセッションを表す。
// 有効性判定（期限切れ）はリポジトリ層で行い、ポリシー層はセッションを変更しない。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
