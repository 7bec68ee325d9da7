// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/ndelvaux/guichet/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateUsername はユーザー名を更新する。
	UpdateUsername(ctx context.Context, id, username string) error

	// UpdatePassword はパスワードハッシュを更新する。
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetEmailVerified はメールアドレス確認済みフラグを設定する。
	SetEmailVerified(ctx context.Context, id string, verified bool) error

	// SetBan はBAN状態を設定する。expiresがnilの場合は無期限BAN。
	SetBan(ctx context.Context, id string, banned bool, reason string, expires *time.Time) error

	// List はユーザー一覧を作成日時降順で返す。管理画面用。
	List(ctx context.Context, limit, offset int) ([]*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、organization_members、invitationsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// OTPRepository はワンタイムコードの永続化インターフェース。
type OTPRepository interface {
	// Upsert は(email, purpose)に対するコードを保存する。
	// 既存のコードがある場合は置き換える（古いコードはSupersededとなり無効化される）。
	Upsert(ctx context.Context, challenge *model.OTPChallenge) error

	// Find は(email, purpose)に対するコードを取得する。
	// 存在しない場合はnilを返す。期限切れの判定は呼び出し側が行う。
	Find(ctx context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error)

	// IncrementAttempts は失敗試行回数を1増やし、新しい回数を返す。
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// Delete は指定IDのコードを削除する。
	Delete(ctx context.Context, id string) error

	// DeleteExpired は期限切れコードを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// OrganizationRepository は組織・メンバー・招待の永続化インターフェース。
type OrganizationRepository interface {
	// Create は組織を作成し、所有者をownerロールのメンバーとして同一トランザクションで追加する。
	Create(ctx context.Context, org *model.Organization) error

	// FindByID は指定IDの組織を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Organization, error)

	// FindBySlug はスラッグで組織を検索する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)

	// ListByUserID はユーザーが所属する組織の一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Organization, error)

	// IsMember はユーザーが組織のメンバーかどうかを返す。
	IsMember(ctx context.Context, orgID, userID string) (bool, error)

	// AddMember はメンバーを追加する。
	AddMember(ctx context.Context, member *model.Member) error

	// RemoveMember はメンバーを削除する。
	RemoveMember(ctx context.Context, orgID, userID string) error

	// CreateInvitation は招待を作成する。
	CreateInvitation(ctx context.Context, inv *model.Invitation) error

	// FindInvitationByToken はトークンで招待を検索する。見つからない場合はnilを返す。
	FindInvitationByToken(ctx context.Context, token string) (*model.Invitation, error)

	// MarkInvitationAccepted は招待を承諾済みにする。
	MarkInvitationAccepted(ctx context.Context, id string) error
}
