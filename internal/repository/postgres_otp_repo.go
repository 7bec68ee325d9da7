package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ndelvaux/guichet/internal/model"
)

// PostgresOTPRepo はPostgreSQLを使用したワンタイムコードリポジトリ。
type PostgresOTPRepo struct {
	db *sql.DB
}

// NewPostgresOTPRepo はPostgresOTPRepoを生成する。
func NewPostgresOTPRepo(db *sql.DB) *PostgresOTPRepo {
	return &PostgresOTPRepo{db: db}
}

// Upsert は(email, purpose)に対するコードを保存する。
// 既存のコードはON CONFLICTで置き換えられ、試行回数もリセットされる。
// これにより同一(email, purpose)のライブなコードは常に1つだけになる。
func (r *PostgresOTPRepo) Upsert(ctx context.Context, c *model.OTPChallenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO otp_challenges (id, email, code_hash, purpose, attempts, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email, purpose) DO UPDATE
		 SET id = EXCLUDED.id,
		     code_hash = EXCLUDED.code_hash,
		     attempts = 0,
		     expires_at = EXCLUDED.expires_at,
		     created_at = EXCLUDED.created_at`,
		c.ID, c.Email, c.CodeHash, c.Purpose, c.Attempts, c.ExpiresAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert otp challenge: %w", err)
	}
	return nil
}

// Find は(email, purpose)に対するコードを取得する。存在しない場合はnilを返す。
func (r *PostgresOTPRepo) Find(ctx context.Context, email string, purpose model.OTPPurpose) (*model.OTPChallenge, error) {
	c := &model.OTPChallenge{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, code_hash, purpose, attempts, expires_at, created_at
		 FROM otp_challenges
		 WHERE lower(email) = lower($1) AND purpose = $2`,
		email, purpose,
	).Scan(&c.ID, &c.Email, &c.CodeHash, &c.Purpose, &c.Attempts, &c.ExpiresAt, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find otp challenge: %w", err)
	}

	return c, nil
}

// IncrementAttempts は失敗試行回数を原子的に1増やし、新しい回数を返す。
func (r *PostgresOTPRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("failed to increment otp attempts: %w", err)
	}
	return attempts, nil
}

// Delete は指定IDのコードを削除する。
func (r *PostgresOTPRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete otp challenge: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れコードを削除し、削除件数を返す。
func (r *PostgresOTPRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp challenges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted otp challenges: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ OTPRepository = (*PostgresOTPRepo)(nil)
