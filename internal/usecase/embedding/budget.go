package embedding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrec/internal/domain"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the query through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the query embedding; the search degrades to no results.
	BudgetActionReject BudgetAction = "reject"
)

// DefaultBudgetKeyPrefix namespaces budget counters in Valkey.
const DefaultBudgetKeyPrefix = "bookrec:budget:"

const persistTimeout = 2 * time.Second

// BudgetStore persists budget counters. Add sets the key to expire at
// expireAt unless it already has a TTL.
type BudgetStore interface {
	Add(ctx context.Context, key string, tokens int64, expireAt time.Time) error
	Load(ctx context.Context, key string) (int64, error)
}

// BudgetLimits configures a tracker. Zero limits mean unlimited.
type BudgetLimits struct {
	Provider     string
	DailyLimit   int64
	MonthlyLimit int64
	Action       BudgetAction
	KeyPrefix    string
}

// window is one UTC accounting period of a tracker.
type window struct {
	period string // daily / monthly
	layout string
	limit  int64
	start  time.Time
	used   int64
	// floor maps a time to the start of its period.
	floor func(time.Time) time.Time
	// next maps a period start to the following one.
	next func(time.Time) time.Time
}

func dailyWindow(limit int64) window {
	return window{
		period: "daily",
		layout: "2006-01-02",
		limit:  limit,
		floor: func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		},
		next: func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
	}
}

func monthlyWindow(limit int64) window {
	return window{
		period: "monthly",
		layout: "2006-01",
		limit:  limit,
		floor: func(t time.Time) time.Time {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		},
		next: func(t time.Time) time.Time { return t.AddDate(0, 1, 0) },
	}
}

// roll moves the window to the period containing now, zeroing usage on change.
func (w *window) roll(now time.Time) {
	if start := w.floor(now); !start.Equal(w.start) {
		w.start = start
		w.used = 0
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

// remaining returns tokens left, -1 when the window is uncapped.
func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

func (w *window) end() time.Time { return w.next(w.start) }

// BudgetTracker is an in-memory token budget with optional write-behind
// persistence. Check never leaves the process.
type BudgetTracker struct {
	mu      sync.Mutex
	limits  BudgetLimits
	daily   window
	monthly window
	now     func() time.Time
	store   BudgetStore
	logger  *zap.Logger
}

// NewBudgetTracker creates a budget tracker with the given limits.
func NewBudgetTracker(limits BudgetLimits, logger *zap.Logger) *BudgetTracker {
	if limits.KeyPrefix == "" {
		limits.KeyPrefix = DefaultBudgetKeyPrefix
	}
	if limits.Action == "" {
		limits.Action = BudgetActionWarn
	}
	return &BudgetTracker{
		limits:  limits,
		daily:   dailyWindow(limits.DailyLimit),
		monthly: monthlyWindow(limits.MonthlyLimit),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

// WithStore attaches a persistence store and loads the current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	b.rollLocked()
	for _, w := range []*window{&b.daily, &b.monthly} {
		used, err := store.Load(ctx, b.key(w))
		if err != nil {
			b.logger.Warn("Failed to load budget from store",
				zap.String("period", w.period), zap.Error(err))
			continue
		}
		w.used = used
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.limits.Provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

// key is <prefix><provider>:<period>:<window start>.
func (b *BudgetTracker) key(w *window) string {
	return b.limits.KeyPrefix + b.limits.Provider + ":" + w.period + ":" + w.start.Format(w.layout)
}

func (b *BudgetTracker) rollLocked() {
	now := b.now()
	b.daily.roll(now)
	b.monthly.roll(now)
}

// Check reports whether a new embedding may be requested.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()

	if !b.daily.exceeded() && !b.monthly.exceeded() {
		return nil
	}
	if b.limits.Action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.limits.Provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.daily.limit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.monthly.limit),
	)
	return nil
}

type pendingAdd struct {
	key      string
	expireAt time.Time
}

// Record adds consumed tokens in memory, then persists them when a store is attached.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollLocked()
	pending := make([]pendingAdd, 0, 2)
	for _, w := range []*window{&b.daily, &b.monthly} {
		w.used += tokens
		pending = append(pending, pendingAdd{key: b.key(w), expireAt: w.end()})
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request so a canceled request still persists usage.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	for _, p := range pending {
		if err := store.Add(ctx, p.key, tokens, p.expireAt); err != nil {
			b.logger.Warn("Failed to persist budget", zap.String("key", p.key), zap.Error(err))
		}
	}
}

// Remaining returns tokens left in the current day and month (-1 if uncapped).
func (b *BudgetTracker) Remaining() (daily, monthly int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.daily.remaining(), b.monthly.remaining()
}

// DailyLimit returns the configured daily cap (0 = unlimited).
func (b *BudgetTracker) DailyLimit() int64 { return b.limits.DailyLimit }

// MonthlyLimit returns the configured monthly cap (0 = unlimited).
func (b *BudgetTracker) MonthlyLimit() int64 { return b.limits.MonthlyLimit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.daily.used
}

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	return b.monthly.used
}
