package org

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ndelvaux/guichet/internal/auth"
	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/repository"
	"github.com/ndelvaux/guichet/internal/validation"
)

// --- インメモリリポジトリ定義 ---

type memOrgRepo struct {
	orgs        map[string]*model.Organization
	members     map[string][]*model.Member // key: orgID
	invitations map[string]*model.Invitation
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{
		orgs:        make(map[string]*model.Organization),
		members:     make(map[string][]*model.Member),
		invitations: make(map[string]*model.Invitation),
	}
}

func (m *memOrgRepo) Create(_ context.Context, org *model.Organization) error {
	copied := *org
	m.orgs[org.ID] = &copied
	m.members[org.ID] = append(m.members[org.ID], &model.Member{
		OrgID:  org.ID,
		UserID: org.OwnerID,
		Role:   model.OrgRoleOwner,
	})
	return nil
}

func (m *memOrgRepo) FindByID(_ context.Context, id string) (*model.Organization, error) {
	if org, ok := m.orgs[id]; ok {
		copied := *org
		return &copied, nil
	}
	return nil, nil
}

func (m *memOrgRepo) FindBySlug(_ context.Context, slug string) (*model.Organization, error) {
	for _, org := range m.orgs {
		if org.Slug == slug {
			copied := *org
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memOrgRepo) ListByUserID(_ context.Context, userID string) ([]*model.Organization, error) {
	var out []*model.Organization
	for orgID, members := range m.members {
		for _, member := range members {
			if member.UserID == userID {
				copied := *m.orgs[orgID]
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (m *memOrgRepo) IsMember(_ context.Context, orgID, userID string) (bool, error) {
	for _, member := range m.members[orgID] {
		if member.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrgRepo) AddMember(_ context.Context, member *model.Member) error {
	copied := *member
	m.members[member.OrgID] = append(m.members[member.OrgID], &copied)
	return nil
}

func (m *memOrgRepo) RemoveMember(_ context.Context, orgID, userID string) error {
	members := m.members[orgID]
	for i, member := range members {
		if member.UserID == userID {
			m.members[orgID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memOrgRepo) CreateInvitation(_ context.Context, inv *model.Invitation) error {
	copied := *inv
	m.invitations[inv.Token] = &copied
	return nil
}

func (m *memOrgRepo) FindInvitationByToken(_ context.Context, token string) (*model.Invitation, error) {
	if inv, ok := m.invitations[token]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, nil
}

func (m *memOrgRepo) MarkInvitationAccepted(_ context.Context, id string) error {
	for _, inv := range m.invitations {
		if inv.ID == id {
			inv.Status = model.InvitationAccepted
		}
	}
	return nil
}

type memUserRepo struct {
	users map[string]*model.User
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) FindByUsername(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}

func (m *memUserRepo) Create(_ context.Context, _ *model.User) error              { return nil }
func (m *memUserRepo) UpdateUsername(_ context.Context, _, _ string) error        { return nil }
func (m *memUserRepo) UpdatePassword(_ context.Context, _, _ string) error        { return nil }
func (m *memUserRepo) SetEmailVerified(_ context.Context, _ string, _ bool) error { return nil }
func (m *memUserRepo) SetBan(_ context.Context, _ string, _ bool, _ string, _ *time.Time) error {
	return nil
}
func (m *memUserRepo) List(_ context.Context, _, _ int) ([]*model.User, error) { return nil, nil }
func (m *memUserRepo) DeleteByID(_ context.Context, _ string) error            { return nil }

type mockInviteMailer struct {
	sent []string // 送信先
	urls []string
}

func (m *mockInviteMailer) SendInvitation(_ context.Context, to, _ string, inviteURL string) error {
	m.sent = append(m.sent, to)
	m.urls = append(m.urls, inviteURL)
	return nil
}

var (
	_ repository.OrganizationRepository = (*memOrgRepo)(nil)
	_ repository.UserRepository         = (*memUserRepo)(nil)
)

// --- テストヘルパー ---

func newTestService() (*Service, *memOrgRepo, *memUserRepo, *mockInviteMailer, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	orgRepo := newMemOrgRepo()
	userRepo := &memUserRepo{users: map[string]*model.User{
		"owner-1":  {ID: "owner-1", Email: "owner@example.com", Username: "owner"},
		"member-1": {ID: "member-1", Email: "member@example.com", Username: "member"},
	}}
	mailer := &mockInviteMailer{}

	s := NewService(orgRepo, userRepo, mailer, ServiceConfig{BaseURL: "https://guichet.example.com/"})
	s.now = func() time.Time { return now }

	return s, orgRepo, userRepo, mailer, &now
}

// --- スラッグ生成 ---

// TestSlugify は組織名からのスラッグ生成を検証する。
func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Mon Équipe", "mon-equipe"},
		{"Café & Thé", "cafe-the"},
		{"  Déjà Vu  ", "deja-vu"},
		{"ACME Corp", "acme-corp"},
		{"œuvre", "oeuvre"},
		{"---", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// --- 組織作成 ---

// TestCreate_Success は組織作成と所有者メンバー登録を検証する。
func TestCreate_Success(t *testing.T) {
	s, orgRepo, _, _, _ := newTestService()

	org, err := s.Create(context.Background(), "owner-1", "Mon Équipe")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if org.Slug != "mon-equipe" {
		t.Errorf("slug = %q, want mon-equipe", org.Slug)
	}

	member, _ := orgRepo.IsMember(context.Background(), org.ID, "owner-1")
	if !member {
		t.Error("owner should be registered as member")
	}
}

// TestCreate_StripsControlChars は改行入りの組織名が無害化されて保存されることを検証する。
// 保存された名前はメール件名にそのまま使われるため、CR・LFを含んではならない。
func TestCreate_StripsControlChars(t *testing.T) {
	s, _, _, _, _ := newTestService()

	org, err := s.Create(context.Background(), "owner-1", "Acme\r\nBcc: attacker@evil.example")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.ContainsAny(org.Name, "\r\n") {
		t.Errorf("name = %q contains line breaks", org.Name)
	}
}

// TestCreate_SlugTaken はスラッグ重複がErrOrgSlugTakenになることを検証する。
func TestCreate_SlugTaken(t *testing.T) {
	s, _, _, _, _ := newTestService()

	if _, err := s.Create(context.Background(), "owner-1", "Mon Équipe"); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	// アクセントや大文字が違っても同じスラッグに正規化される
	if _, err := s.Create(context.Background(), "member-1", "MON EQUIPE"); !errors.Is(err, model.ErrOrgSlugTaken) {
		t.Errorf("error = %v, want ErrOrgSlugTaken", err)
	}
}

// TestCreate_StripsTags は組織名のHTMLタグが除去されることを検証する。
func TestCreate_StripsTags(t *testing.T) {
	s, _, _, _, _ := newTestService()

	org, err := s.Create(context.Background(), "owner-1", `<b>Equipe</b><script>x</script>`)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.Contains(org.Name, "<") {
		t.Errorf("name = %q, tags not stripped", org.Name)
	}
}

// --- 招待 ---

// TestInvite_Success は招待の作成とメール送信を検証する。
func TestInvite_Success(t *testing.T) {
	s, _, _, mailer, now := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")

	inv, err := s.Invite(context.Background(), org.ID, "owner-1", "nouveau@example.com")
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if inv.Status != model.InvitationPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}
	if got, want := inv.ExpiresAt, now.Add(model.InvitationTTL); !got.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got, want)
	}

	if len(mailer.sent) != 1 || mailer.sent[0] != "nouveau@example.com" {
		t.Errorf("mailer.sent = %v, want [nouveau@example.com]", mailer.sent)
	}
	if !strings.Contains(mailer.urls[0], "/invitations/"+inv.Token) {
		t.Errorf("invite URL %q does not contain token path", mailer.urls[0])
	}
}

// TestInvite_InvalidEmail は不正なメールアドレスへの招待が検証エラーになることを検証する。
// リポジトリにもメーラーにも到達してはならない。
func TestInvite_InvalidEmail(t *testing.T) {
	s, orgRepo, _, mailer, _ := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")

	invalids := []string{
		"",
		"pas-un-email",
		"a@b@c.example",
		"alice@example.com\r\nBcc: attacker@evil.example",
	}
	for _, email := range invalids {
		_, err := s.Invite(context.Background(), org.ID, "owner-1", email)

		var vErr *auth.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Invite(%q) error = %v, want ValidationError", email, err)
			continue
		}
		if len(vErr.Violations) != 1 || vErr.Violations[0] != validation.ViolationEmailInvalid {
			t.Errorf("Invite(%q) violations = %v", email, vErr.Violations)
		}
	}

	if len(mailer.sent) != 0 {
		t.Errorf("mailer.sent = %v, want none", mailer.sent)
	}
	if len(orgRepo.invitations) != 0 {
		t.Errorf("invitations persisted = %d, want 0", len(orgRepo.invitations))
	}
}

// TestInvite_NotOwner は所有者以外の招待がErrNotOrgOwnerになることを検証する。
func TestInvite_NotOwner(t *testing.T) {
	s, _, _, _, _ := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")

	if _, err := s.Invite(context.Background(), org.ID, "member-1", "x@example.com"); !errors.Is(err, model.ErrNotOrgOwner) {
		t.Errorf("error = %v, want ErrNotOrgOwner", err)
	}
}

// TestInvite_AlreadyMember は既存メンバーへの招待がErrAlreadyMemberになることを検証する。
func TestInvite_AlreadyMember(t *testing.T) {
	s, _, _, _, _ := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")

	if _, err := s.Invite(context.Background(), org.ID, "owner-1", "owner@example.com"); !errors.Is(err, model.ErrAlreadyMember) {
		t.Errorf("error = %v, want ErrAlreadyMember", err)
	}
}

// --- 承諾 ---

// TestAccept_Success は招待承諾でメンバー追加と状態遷移が起きることを検証する。
func TestAccept_Success(t *testing.T) {
	s, orgRepo, _, _, _ := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")
	inv, _ := s.Invite(context.Background(), org.ID, "owner-1", "member@example.com")

	accepted, err := s.Accept(context.Background(), inv.Token, "member-1")
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if accepted.ID != org.ID {
		t.Errorf("org = %q, want %q", accepted.ID, org.ID)
	}

	member, _ := orgRepo.IsMember(context.Background(), org.ID, "member-1")
	if !member {
		t.Error("user should be a member after accept")
	}

	// 承諾済みの招待は再利用できない
	if _, err := s.Accept(context.Background(), inv.Token, "member-1"); !errors.Is(err, model.ErrInvitationInvalid) {
		t.Errorf("reuse: error = %v, want ErrInvitationInvalid", err)
	}
}

// TestAccept_Expired は期限切れ招待がErrInvitationExpiredになることを検証する。
func TestAccept_Expired(t *testing.T) {
	s, _, _, _, now := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")
	inv, _ := s.Invite(context.Background(), org.ID, "owner-1", "member@example.com")

	*now = now.Add(model.InvitationTTL + time.Hour)

	if _, err := s.Accept(context.Background(), inv.Token, "member-1"); !errors.Is(err, model.ErrInvitationExpired) {
		t.Errorf("error = %v, want ErrInvitationExpired", err)
	}
}

// TestAccept_EmailMismatch は招待先メールと異なるユーザーの承諾が拒否されることを検証する。
func TestAccept_EmailMismatch(t *testing.T) {
	s, _, userRepo, _, _ := newTestService()
	userRepo.users["other-1"] = &model.User{ID: "other-1", Email: "other@example.com"}

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")
	inv, _ := s.Invite(context.Background(), org.ID, "owner-1", "member@example.com")

	if _, err := s.Accept(context.Background(), inv.Token, "other-1"); !errors.Is(err, model.ErrInvitationInvalid) {
		t.Errorf("error = %v, want ErrInvitationInvalid", err)
	}
}

// TestAccept_UnknownToken は不明なトークンがErrInvitationInvalidになることを検証する。
func TestAccept_UnknownToken(t *testing.T) {
	s, _, _, _, _ := newTestService()

	if _, err := s.Accept(context.Background(), "deadbeef", "member-1"); !errors.Is(err, model.ErrInvitationInvalid) {
		t.Errorf("error = %v, want ErrInvitationInvalid", err)
	}
}

// --- メンバー削除 ---

// TestRemoveMember は所有者によるメンバー削除と各種拒否を検証する。
func TestRemoveMember(t *testing.T) {
	s, orgRepo, _, _, _ := newTestService()

	org, _ := s.Create(context.Background(), "owner-1", "Equipe")
	inv, _ := s.Invite(context.Background(), org.ID, "owner-1", "member@example.com")
	if _, err := s.Accept(context.Background(), inv.Token, "member-1"); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	// 所有者以外は削除できない
	if err := s.RemoveMember(context.Background(), org.ID, "member-1", "owner-1"); !errors.Is(err, model.ErrNotOrgOwner) {
		t.Errorf("non-owner: error = %v, want ErrNotOrgOwner", err)
	}

	// 所有者自身は外せない
	if err := s.RemoveMember(context.Background(), org.ID, "owner-1", "owner-1"); err == nil {
		t.Error("expected error when removing owner")
	}

	// 所有者によるメンバー削除
	if err := s.RemoveMember(context.Background(), org.ID, "owner-1", "member-1"); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}
	member, _ := orgRepo.IsMember(context.Background(), org.ID, "member-1")
	if member {
		t.Error("member should be removed")
	}
}
