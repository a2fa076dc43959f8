package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter は外部APIへのリクエスト数を1分単位のトークンバケットで制限する
type RateLimiter struct {
	mu sync.Mutex

	// requestsPerMinute は1分あたりの最大リクエスト数
	requestsPerMinute int

	tokens     int
	lastRefill time.Time
	waiting    int

	// inFlight は同時実行数を制御するセマフォ
	inFlight chan struct{}

	// retryInterval はトークン枯渇時の再確認間隔
	retryInterval time.Duration
	now           func() time.Time
}

// NewRateLimiter は新しいRateLimiterを作成する
// maxInFlight が0以下の場合は requestsPerMinute を同時実行数の上限とする
func NewRateLimiter(requestsPerMinute, maxInFlight int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if maxInFlight <= 0 {
		maxInFlight = requestsPerMinute
	}

	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokens:            requestsPerMinute,
		lastRefill:        time.Now(),
		inFlight:          make(chan struct{}, maxInFlight),
		retryInterval:     time.Second,
		now:               time.Now,
	}
}

// Wait は実行権限を取得するまで待機する
// contextがキャンセルされた場合はエラーを返す。成功時は必ずRelease()を呼ぶこと
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case rl.inFlight <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for {
		rl.refill()

		if rl.tokens > 0 {
			rl.tokens--
			return nil
		}

		rl.waiting++
		rl.mu.Unlock()

		select {
		case <-time.After(rl.retryInterval):
		case <-ctx.Done():
			rl.mu.Lock()
			rl.waiting--
			<-rl.inFlight
			return ctx.Err()
		}

		rl.mu.Lock()
		rl.waiting--
	}
}

// Release は実行権限を解放する
func (rl *RateLimiter) Release() {
	<-rl.inFlight
}

// refill はトークンを補充する。呼び出し側でロックを取得していること
func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	if elapsed < time.Minute {
		return
	}

	minutes := int(elapsed / time.Minute)
	rl.tokens = min(rl.tokens+minutes*rl.requestsPerMinute, rl.requestsPerMinute)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(minutes) * time.Minute)
}

// Status は現在の状態を返す（監視・ログ用）
func (rl *RateLimiter) Status() Status {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	return Status{
		RequestsPerMinute: rl.requestsPerMinute,
		AvailableTokens:   rl.tokens,
		WaitingRequests:   rl.waiting,
		ActiveRequests:    len(rl.inFlight),
	}
}

// Status はレート制限の状態
type Status struct {
	RequestsPerMinute int
	AvailableTokens   int
	WaitingRequests   int
	ActiveRequests    int
}

func (s Status) String() string {
	return fmt.Sprintf(
		"RateLimiter: max=%d/min, available=%d, waiting=%d, active=%d",
		s.RequestsPerMinute,
		s.AvailableTokens,
		s.WaitingRequests,
		s.ActiveRequests,
	)
}
