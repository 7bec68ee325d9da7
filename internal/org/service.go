// Package org は組織・メンバーシップ・招待のドメインロジックを提供する。
package org

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndelvaux/guichet/internal/auth"
	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/repository"
	"github.com/ndelvaux/guichet/internal/security"
	"github.com/ndelvaux/guichet/internal/validation"
)

// InvitationMailer は招待メールの送信インターフェース。
type InvitationMailer interface {
	SendInvitation(ctx context.Context, to, orgName, inviteURL string) error
}

// ServiceConfig は組織サービスの設定。
type ServiceConfig struct {
	BaseURL string // 招待リンクの生成に使用する
}

// Service は組織管理のサービス層。
type Service struct {
	orgRepo   repository.OrganizationRepository
	userRepo  repository.UserRepository
	mailer    InvitationMailer
	sanitizer *security.NameSanitizer
	config    ServiceConfig
	now       func() time.Time // テストで差し替え可能
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	mailer InvitationMailer,
	config ServiceConfig,
) *Service {
	return &Service{
		orgRepo:   orgRepo,
		userRepo:  userRepo,
		mailer:    mailer,
		sanitizer: security.NewNameSanitizer(),
		config:    config,
		now:       time.Now,
	}
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify は組織名からURLセーフなスラッグを生成する。
func Slugify(name string) string {
	s := strings.ToLower(name)

	// よく使われるアクセント付き文字をASCIIに寄せる
	replacer := strings.NewReplacer(
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"à", "a", "â", "a", "ä", "a",
		"î", "i", "ï", "i",
		"ô", "o", "ö", "o",
		"ù", "u", "û", "u", "ü", "u",
		"ç", "c", "œ", "oe", "æ", "ae",
	)
	s = replacer.Replace(s)

	s = slugInvalidChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Create は組織を作成し、作成者を所有者として登録する。
// 組織名はタグと制御文字を除去した上で保存され、スラッグ重複はErrOrgSlugTakenを返す。
func (s *Service) Create(ctx context.Context, ownerID, name string) (*model.Organization, error) {
	name = strings.TrimSpace(s.sanitizer.Sanitize(name))
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}

	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("organization name yields empty slug")
	}

	existing, err := s.orgRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, model.ErrOrgSlugTaken
	}

	org := &model.Organization{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug,
		OwnerID:   ownerID,
		CreatedAt: s.now(),
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	slog.Info("organization created",
		slog.String("org_id", org.ID),
		slog.String("slug", org.Slug),
	)

	return org, nil
}

// ListMine はユーザーが所属する組織の一覧を返す。
func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.Organization, error) {
	return s.orgRepo.ListByUserID(ctx, userID)
}

// Invite は組織へのメール招待を作成し、招待リンクを送信する。
// 招待先のメールアドレスは永続化・送信の前に形式検証される。
// 所有者のみが招待でき、既存メンバーへの招待はErrAlreadyMemberを返す。
func (s *Service) Invite(ctx context.Context, orgID, inviterID, email string) (*model.Invitation, error) {
	if !validation.IsValidEmail(email) {
		return nil, &auth.ValidationError{Violations: []string{validation.ViolationEmailInvalid}}
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	if org == nil {
		return nil, model.ErrInvitationInvalid
	}
	if org.OwnerID != inviterID {
		return nil, model.ErrNotOrgOwner
	}

	// 招待先が既にメンバーの場合は弾く
	invitee, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find invitee: %w", err)
	}
	if invitee != nil {
		member, err := s.orgRepo.IsMember(ctx, orgID, invitee.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check membership: %w", err)
		}
		if member {
			return nil, model.ErrAlreadyMember
		}
	}

	token, err := generateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	now := s.now()
	inv := &model.Invitation{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Email:     email,
		Token:     token,
		Status:    model.InvitationPending,
		ExpiresAt: now.Add(model.InvitationTTL),
		CreatedAt: now,
	}

	if err := s.orgRepo.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	inviteURL := strings.TrimSuffix(s.config.BaseURL, "/") + "/invitations/" + token
	if err := s.mailer.SendInvitation(ctx, email, org.Name, inviteURL); err != nil {
		slog.Error("failed to send invitation mail",
			slog.String("org_id", orgID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("invitation created", slog.String("org_id", orgID))
	return inv, nil
}

// Accept は招待トークンを検証し、ユーザーをメンバーとして追加する。
// 期限切れはErrInvitationExpired、承諾済み・不存在・メール不一致は
// ErrInvitationInvalidを返す。
func (s *Service) Accept(ctx context.Context, token, userID string) (*model.Organization, error) {
	inv, err := s.orgRepo.FindInvitationByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	if inv == nil || inv.Status != model.InvitationPending {
		return nil, model.ErrInvitationInvalid
	}
	if s.now().After(inv.ExpiresAt) {
		return nil, model.ErrInvitationExpired
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !strings.EqualFold(user.Email, inv.Email) {
		return nil, model.ErrInvitationInvalid
	}

	member, err := s.orgRepo.IsMember(ctx, inv.OrgID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if member {
		return nil, model.ErrAlreadyMember
	}

	if err := s.orgRepo.AddMember(ctx, &model.Member{
		OrgID:     inv.OrgID,
		UserID:    userID,
		Role:      model.OrgRoleMember,
		CreatedAt: s.now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if err := s.orgRepo.MarkInvitationAccepted(ctx, inv.ID); err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	org, err := s.orgRepo.FindByID(ctx, inv.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	slog.Info("invitation accepted",
		slog.String("org_id", inv.OrgID),
		slog.String("user_id", userID),
	)

	return org, nil
}

// RemoveMember は組織からメンバーを外す。所有者のみが実行でき、
// 所有者自身は外せない。
func (s *Service) RemoveMember(ctx context.Context, orgID, ownerID, targetUserID string) error {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to find organization: %w", err)
	}
	if org == nil {
		return model.ErrInvitationInvalid
	}
	if org.OwnerID != ownerID {
		return model.ErrNotOrgOwner
	}
	if targetUserID == org.OwnerID {
		return fmt.Errorf("owner cannot be removed from own organization")
	}

	if err := s.orgRepo.RemoveMember(ctx, orgID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	slog.Info("member removed",
		slog.String("org_id", orgID),
		slog.String("user_id", targetUserID),
	)

	return nil
}

// generateInviteToken は推測不可能な招待トークンを生成する。
func generateInviteToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
