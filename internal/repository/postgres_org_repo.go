package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndelvaux/guichet/internal/model"
)

// PostgresOrgRepo はPostgreSQLを使用した組織リポジトリ。
type PostgresOrgRepo struct {
	db *sql.DB
}

// NewPostgresOrgRepo はPostgresOrgRepoを生成する。
func NewPostgresOrgRepo(db *sql.DB) *PostgresOrgRepo {
	return &PostgresOrgRepo{db: db}
}

// Create は組織を作成し、所有者をownerロールのメンバーとして
// 同一トランザクションで追加する。
func (r *PostgresOrgRepo) Create(ctx context.Context, org *model.Organization) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO organizations (id, name, slug, owner_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		org.ID, org.Name, org.Slug, org.OwnerID, org.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO organization_members (org_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)`,
		org.ID, org.OwnerID, model.OrgRoleOwner, org.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add owner member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindByID は指定IDの組織を取得する。見つからない場合はnilを返す。
func (r *PostgresOrgRepo) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	org := &model.Organization{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, owner_id, created_at FROM organizations WHERE id = $1`,
		id,
	).Scan(&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}

	return org, nil
}

// FindBySlug はスラッグで組織を検索する。見つからない場合はnilを返す。
func (r *PostgresOrgRepo) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	org := &model.Organization{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, owner_id, created_at FROM organizations WHERE slug = $1`,
		slug,
	).Scan(&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization by slug: %w", err)
	}

	return org, nil
}

// ListByUserID はユーザーが所属する組織の一覧を作成日時降順で返す。
func (r *PostgresOrgRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Organization, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT o.id, o.name, o.slug, o.owner_id, o.created_at
		 FROM organizations o
		 JOIN organization_members m ON m.org_id = o.id
		 WHERE m.user_id = $1
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*model.Organization
	for rows.Next() {
		org := &model.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.OwnerID, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}

	return orgs, nil
}

// IsMember はユーザーが組織のメンバーかどうかを返す。
func (r *PostgresOrgRepo) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM organization_members WHERE org_id = $1 AND user_id = $2
		 )`,
		orgID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// AddMember はメンバーを追加する。
func (r *PostgresOrgRepo) AddMember(ctx context.Context, member *model.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO organization_members (org_id, user_id, role, created_at)
		 VALUES ($1, $2, $3, $4)`,
		member.OrgID, member.UserID, member.Role, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember はメンバーを削除する。
func (r *PostgresOrgRepo) RemoveMember(ctx context.Context, orgID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM organization_members WHERE org_id = $1 AND user_id = $2`,
		orgID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// CreateInvitation は招待を作成する。
func (r *PostgresOrgRepo) CreateInvitation(ctx context.Context, inv *model.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (id, org_id, email, token, status, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.OrgID, inv.Email, inv.Token, inv.Status, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// FindInvitationByToken はトークンで招待を検索する。見つからない場合はnilを返す。
func (r *PostgresOrgRepo) FindInvitationByToken(ctx context.Context, token string) (*model.Invitation, error) {
	inv := &model.Invitation{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, org_id, email, token, status, expires_at, created_at
		 FROM invitations WHERE token = $1`,
		token,
	).Scan(&inv.ID, &inv.OrgID, &inv.Email, &inv.Token, &inv.Status, &inv.ExpiresAt, &inv.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	return inv, nil
}

// MarkInvitationAccepted は招待を承諾済みにする。
func (r *PostgresOrgRepo) MarkInvitationAccepted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = $1 WHERE id = $2`,
		model.InvitationAccepted, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	return nil
}

// compile-time interface check
var _ OrganizationRepository = (*PostgresOrgRepo)(nil)
