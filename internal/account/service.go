// Package account はアカウント管理（プロフィール更新・退会）のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ndelvaux/guichet/internal/auth"
	"github.com/ndelvaux/guichet/internal/model"
	"github.com/ndelvaux/guichet/internal/repository"
	"github.com/ndelvaux/guichet/internal/validation"
)

// Service はアカウント管理のサービス層。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
	}
}

// UpdateUsername はユーザー名を変更する。
func (s *Service) UpdateUsername(ctx context.Context, userID, username string) error {
	if result := validation.ValidateUsername(username); !result.Valid {
		return &auth.ValidationError{Violations: result.Violations}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}

	// 同名（大文字小文字のみの変更を含む）への変更は重複チェックを通す
	if !strings.EqualFold(user.Username, username) {
		existing, err := s.userRepo.FindByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("ユーザー名の重複確認に失敗しました: %w", err)
		}
		if existing != nil {
			return model.ErrUsernameExists
		}
	}

	if err := s.userRepo.UpdateUsername(ctx, userID, username); err != nil {
		return fmt.Errorf("ユーザー名の更新に失敗しました: %w", err)
	}

	return nil
}

// ChangePassword は現在のパスワードを確認した上で新しいパスワードを設定する。
// 既存のセッションはすべて無効化されるため、呼び出し側でセッションを再発行すること。
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if result := validation.ValidatePassword(newPassword); !result.Valid {
		return &auth.ValidationError{Violations: result.Violations}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return model.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("パスワードの更新に失敗しました: %w", err)
	}

	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの無効化に失敗しました: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: organization_members, invitations, otp）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.ErrUserNotFound
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. ユーザーを削除（organization_members等はCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
