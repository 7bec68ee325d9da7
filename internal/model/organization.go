package model

import "time"

// OrgRole は組織内のメンバーロールを表す。
type OrgRole string

const (
	// OrgRoleOwner は組織の所有者。メンバー招待・削除が可能。
	OrgRoleOwner OrgRole = "owner"
	// OrgRoleMember は一般メンバー。
	OrgRoleMember OrgRole = "member"
)

// Organization はユーザーが所属する組織を表す。
type Organization struct {
	ID        string
	Name      string
	Slug      string
	OwnerID   string
	CreatedAt time.Time
}

// Member は組織へのユーザーの所属を表す。
type Member struct {
	OrgID     string
	UserID    string
	Role      OrgRole
	CreatedAt time.Time
}

// InvitationStatus は招待の状態を表す。
type InvitationStatus string

const (
	// InvitationPending は未承諾の招待。
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted は承諾済みの招待。再利用できない。
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation は組織へのメール招待を表す。
// トークンは招待メールのリンクに埋め込まれ、期限切れまたは承諾済みの場合は無効。
type Invitation struct {
	ID        string
	OrgID     string
	Email     string
	Token     string
	Status    InvitationStatus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// InvitationTTL は招待トークンの有効期間。
const InvitationTTL = 72 * time.Hour
