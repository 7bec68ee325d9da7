// Package admin は管理者向けのユーザー管理機能を提供する。
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/repository"
)

// デフォルトのページサイズと上限。
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service は管理者向けのユーザー管理サービス。
// 呼び出し元が管理者ロールを持つことの確認はゲートが行う。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// ListUsers はユーザー一覧を作成日時降順で返す。
// limitが0以下の場合はデフォルト値、上限を超える場合は上限に丸める。
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// BanUser は指定ユーザーをBANし、既存のセッションをすべて失効させる。
// expiresがnilの場合は無期限BAN。管理者自身をBANすることはできない。
func (s *Service) BanUser(ctx context.Context, adminID, targetID, reason string, expires *time.Time) error {
	if adminID == targetID {
		return fmt.Errorf("自分自身をBANすることはできません")
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.ErrUserNotFound
	}

	if err := s.userRepo.SetBan(ctx, targetID, true, reason, expires); err != nil {
		return fmt.Errorf("BAN状態の更新に失敗しました: %w", err)
	}

	// BAN即時反映のためセッションを失効させる
	if err := s.sessionRepo.DeleteByUserID(ctx, targetID); err != nil {
		return fmt.Errorf("セッションの失効に失敗しました: %w", err)
	}

	slog.Info("ユーザーをBANしました",
		slog.String("admin_id", adminID),
		slog.String("target_id", targetID),
		slog.String("reason", reason),
	)
	return nil
}

// UnbanUser は指定ユーザーのBANを解除する。
func (s *Service) UnbanUser(ctx context.Context, adminID, targetID string) error {
	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if target == nil {
		return model.ErrUserNotFound
	}

	if err := s.userRepo.SetBan(ctx, targetID, false, "", nil); err != nil {
		return fmt.Errorf("BAN状態の更新に失敗しました: %w", err)
	}

	slog.Info("ユーザーのBANを解除しました",
		slog.String("admin_id", adminID),
		slog.String("target_id", targetID),
	)
	return nil
}
