package usage

// TokenBudget exposes embedding token counters and their caps (0 = unlimited).
type TokenBudget interface {
	DailyUsed() int64
	DailyLimit() int64
	MonthlyUsed() int64
	MonthlyLimit() int64
}
