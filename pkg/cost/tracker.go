// Package cost tracks estimated generation spend against configured
// budgets. Budgets are advisory: an exceeded budget produces warnings,
// never a blocked generation.
package cost

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattyatplay-coder/vibeboard/pkg/config"
	"github.com/mattyatplay-coder/vibeboard/pkg/provider"
)

// costStore defines the storage operations required by the tracker.
type costStore interface {
	GetSessionCost(sessionID string) (float64, error)
	GetDailyCost() (float64, error)
	GetMonthlyCost() (float64, error)
}

// Tracker accumulates estimated spend for the running session and checks it
// against session, daily, and monthly budgets.
type Tracker struct {
	sessionID string
	store     costStore

	mu              sync.RWMutex
	sessionCost     float64
	dailyCost       float64
	monthlyCost     float64
	lastDailyUpdate time.Time

	sessionBudget float64
	dailyBudget   float64
	monthlyBudget float64
}

// New creates a cost tracker seeded from stored history.
func New(sessionID string, store costStore, budgets config.BudgetConfig) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("cost tracker requires a storage backend")
	}

	ct := &Tracker{
		sessionID:     sessionID,
		store:         store,
		sessionBudget: normalizeBudget(budgets.Session),
		dailyBudget:   normalizeBudget(budgets.Daily),
		monthlyBudget: normalizeBudget(budgets.Monthly),
	}

	if err := ct.loadCosts(); err != nil {
		return nil, err
	}
	return ct, nil
}

func normalizeBudget(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// loadCosts refreshes rollups from the database.
func (ct *Tracker) loadCosts() error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	session, err := ct.store.GetSessionCost(ct.sessionID)
	if err != nil {
		return err
	}
	ct.sessionCost = session

	daily, err := ct.store.GetDailyCost()
	if err != nil {
		return err
	}
	ct.dailyCost = daily
	ct.lastDailyUpdate = time.Now()

	monthly, err := ct.store.GetMonthlyCost()
	if err != nil {
		return err
	}
	ct.monthlyCost = monthly

	return nil
}

// Record adds an estimated generation cost to the running totals. The
// persistent record is written by the dispatcher; this keeps the in-memory
// view current without a database round trip per generation.
func (ct *Tracker) Record(cost float64) {
	if cost <= 0 || cost >= provider.CostUnsupported {
		return
	}
	ct.mu.Lock()
	ct.sessionCost += cost
	ct.dailyCost += cost
	ct.monthlyCost += cost
	ct.mu.Unlock()
}

// Estimate returns the catalog cost of a prospective generation.
func (ct *Tracker) Estimate(kind provider.Kind, media provider.MediaKind, count int) float64 {
	return provider.EstimateCost(kind, media, count)
}

// GetSessionCost returns the current session cost
func (ct *Tracker) GetSessionCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.sessionCost
}

// GetDailyCost returns the current daily cost
func (ct *Tracker) GetDailyCost() float64 {
	ct.mu.RLock()
	stale := time.Since(ct.lastDailyUpdate) > 24*time.Hour
	ct.mu.RUnlock()

	if stale {
		// New day; the daily rollup must come from the database again.
		_ = ct.loadCosts()
	}

	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.dailyCost
}

// GetMonthlyCost returns the current monthly cost
func (ct *Tracker) GetMonthlyCost() float64 {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.monthlyCost
}

// CheckBudget reports standing against every budget. Callers surface the
// warning; nothing here stops a generation.
func (ct *Tracker) CheckBudget() *BudgetStatus {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	status := &BudgetStatus{
		SessionCost:    ct.sessionCost,
		DailyCost:      ct.dailyCost,
		MonthlyCost:    ct.monthlyCost,
		SessionBudget:  ct.sessionBudget,
		DailyBudget:    ct.dailyBudget,
		MonthlyBudget:  ct.monthlyBudget,
		SessionPercent: budgetPercent(ct.sessionCost, ct.sessionBudget),
		DailyPercent:   budgetPercent(ct.dailyCost, ct.dailyBudget),
		MonthlyPercent: budgetPercent(ct.monthlyCost, ct.monthlyBudget),
	}

	if ct.sessionBudget > 0 && ct.sessionCost >= ct.sessionBudget {
		status.SessionExceeded = true
	}
	if ct.dailyBudget > 0 && ct.dailyCost >= ct.dailyBudget {
		status.DailyExceeded = true
	}
	if ct.monthlyBudget > 0 && ct.monthlyCost >= ct.monthlyBudget {
		status.MonthlyExceeded = true
	}

	if status.SessionExceeded || status.DailyExceeded || status.MonthlyExceeded ||
		status.SessionPercent >= 80 || status.DailyPercent >= 80 || status.MonthlyPercent >= 80 {
		status.ShouldWarn = true
	}

	return status
}

func budgetPercent(cost, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return cost / budget * 100
}

// BudgetStatus represents the current budget status
type BudgetStatus struct {
	SessionCost    float64
	DailyCost      float64
	MonthlyCost    float64
	SessionBudget  float64
	DailyBudget    float64
	MonthlyBudget  float64
	SessionPercent float64
	DailyPercent   float64
	MonthlyPercent float64

	SessionExceeded bool
	DailyExceeded   bool
	MonthlyExceeded bool

	ShouldWarn bool
}

// GetWarningMessage returns a warning message if needed
func (bs *BudgetStatus) GetWarningMessage() string {
	if !bs.ShouldWarn {
		return ""
	}

	msg := "Budget warnings:\n"
	if bs.SessionExceeded || bs.SessionPercent >= 80 {
		msg += fmt.Sprintf("  - session: $%.2f / $%.2f (%.0f%%)\n", bs.SessionCost, bs.SessionBudget, bs.SessionPercent)
	}
	if bs.DailyExceeded || bs.DailyPercent >= 80 {
		msg += fmt.Sprintf("  - daily: $%.2f / $%.2f (%.0f%%)\n", bs.DailyCost, bs.DailyBudget, bs.DailyPercent)
	}
	if bs.MonthlyExceeded || bs.MonthlyPercent >= 80 {
		msg += fmt.Sprintf("  - monthly: $%.2f / $%.2f (%.0f%%)\n", bs.MonthlyCost, bs.MonthlyBudget, bs.MonthlyPercent)
	}
	return msg
}
