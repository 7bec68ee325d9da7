// Package ratelimit は固定ウィンドウ方式のカウンタによるレート制限を提供する。
//
// 固定ウィンドウはウィンドウ境界で最大2倍のバーストを許すが、キーごとに
// O(1)のメモリと時間で粗い濫用防止ができるため、OTP・ログイン試行の
// 制限用途には十分である。スライディングウィンドウへの変更は挙動の変更と
// なるため行わない。
//
// 既定のMemoryStoreはプロセスローカルであり、複数インスタンスを並行稼働
// させる構成では正しいスロットリングを提供しない（既知の制約）。
// 共有ストアが必要な場合は同じStoreコントラクトを満たすRedisStoreを
// 注入する。
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store はキーごとの固定ウィンドウカウンタの保存先を抽象化する。
// MemoryStore（既定）とRedisStore（水平スケール構成向け）が実装する。
type Store interface {
	// Check はキーのカウンタをウィンドウ内で検査・更新する。
	// 許可ならtrueを返しカウンタを加算する。拒否ならfalseを返し、
	// それ以上状態を変更しない。
	Check(ctx context.Context, key string, maxAttempts int, window time.Duration) (bool, error)
}

// Limiter はStoreを包み、レート制限判定を提供する。
type Limiter struct {
	store Store
}

// NewLimiter はLimiterを生成する。
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check はキーに対するリクエストが許可されるかどうかを返す。
// ストア障害時は詳細をログに記録し、可用性を優先してリクエストを許可する。
func (l *Limiter) Check(ctx context.Context, key string, maxAttempts int, window time.Duration) bool {
	allowed, err := l.store.Check(ctx, key, maxAttempts, window)
	if err != nil {
		slog.Error("rate limit store error",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return true
	}
	return allowed
}

// entry は1キー分の固定ウィンドウカウンタ。
// キーごとに高々1つのライブエントリのみ存在し、ウィンドウ内でcountが
// 減少することはない。
type entry struct {
	count         int
	windowResetAt time.Time
}

// MemoryStore はプロセス内のmapで固定ウィンドウカウンタを管理するStore実装。
// Check中のread-modify-writeはミューテックスで直列化されるため、
// 並行リクエストが同時にcount < maxを観測して両方通過することはない。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry

	// now はテストから固定クロックを注入するためのフック。
	now func() time.Time

	sweepInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore はMemoryStoreを生成する。スイープはStartで開始する。
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:       make(map[string]*entry),
		now:           time.Now,
		sweepInterval: sweepInterval,
		stopCh:        make(chan struct{}),
	}
}

// Check は固定ウィンドウカウンタを検査・更新する。
// 初回はcount=1で新規エントリを作成して許可。ウィンドウ経過後は
// 新しいウィンドウとしてcount=1にリセットして許可。ウィンドウ内で
// count < maxAttemptsなら加算して許可、それ以外は状態を変えずに拒否する。
func (s *MemoryStore) Check(_ context.Context, key string, maxAttempts int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	e, ok := s.entries[key]
	if !ok || now.After(e.windowResetAt) {
		s.entries[key] = &entry{count: 1, windowResetAt: now.Add(window)}
		return true, nil
	}

	if e.count < maxAttempts {
		e.count++
		return true, nil
	}

	return false, nil
}

// Start はバックグラウンドの定期スイープを開始する。
func (s *MemoryStore) Start() {
	go s.sweepLoop()
}

// Stop はスイープのバックグラウンドゴルーチンを停止する。複数回呼んでも安全。
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Len は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweepLoop はバックグラウンドで期限切れエントリを定期的に削除する。
func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup はウィンドウが完全に経過したエントリのみを削除する。
// ライブなエントリは決して変更しないため、Checkとの並行実行は常に安全。
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if now.After(e.windowResetAt) {
			delete(s.entries, key)
		}
	}
}
