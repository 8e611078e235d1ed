// Package usage reports query embedding token consumption against the budget.
package usage

import (
	"context"
	"fmt"
	"time"
)

// Period is a budget accounting window.
type Period string

// Periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts "day" and "month"; empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Report is token usage for one period.
type Report struct {
	Period     Period
	Start      time.Time
	End        time.Time // also when the budget resets
	TokensUsed int64
	Limit      int64 // 0 = unlimited
	Remaining  int64 // -1 = unlimited
	Exhausted  bool
}

// Service handles usage reporting.
type Service struct {
	budget TokenBudget
	now    func() time.Time
}

// New creates a Service. budget can be nil when no budget is configured.
func New(budget TokenBudget) *Service {
	return &Service{budget: budget, now: time.Now}
}

// Report builds a usage report for the given period.
func (s *Service) Report(_ context.Context, period Period) Report {
	now := s.now().UTC()
	r := Report{Period: period, Remaining: -1}

	switch period {
	case PeriodMonth:
		r.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		r.End = r.Start.AddDate(0, 1, 0)
		if s.budget != nil {
			r.Limit, r.TokensUsed = s.budget.MonthlyLimit(), s.budget.MonthlyUsed()
		}
	default:
		r.Period = PeriodDay
		r.Start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r.End = r.Start.Add(24 * time.Hour)
		if s.budget != nil {
			r.Limit, r.TokensUsed = s.budget.DailyLimit(), s.budget.DailyUsed()
		}
	}

	if r.Limit > 0 {
		r.Remaining = max(r.Limit-r.TokensUsed, 0)
		r.Exhausted = r.Remaining == 0
	}
	return r
}
