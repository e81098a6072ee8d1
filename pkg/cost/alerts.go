package cost

import "sync"

// BudgetAlertLevel indicates the severity of a budget alert.
type BudgetAlertLevel string

const (
	BudgetAlertWarning  BudgetAlertLevel = "warning"
	BudgetAlertCritical BudgetAlertLevel = "critical"
	BudgetAlertExceeded BudgetAlertLevel = "exceeded"
)

const (
	BudgetTypeSession = "session"
	BudgetTypeDaily   = "daily"
	BudgetTypeMonthly = "monthly"
)

// BudgetAlert describes one budget crossing a severity threshold.
type BudgetAlert struct {
	Level      BudgetAlertLevel
	BudgetType string
	Percent    float64
	Spent      float64
	Budget     float64
}

// BudgetAlertCallback receives budget alerts.
type BudgetAlertCallback func(alert BudgetAlert)

// BudgetNotifier turns budget status snapshots into edge-triggered alerts:
// each budget/level pair fires at most once per process, so repeated
// generations past a threshold do not spam the subscriber.
type BudgetNotifier struct {
	mu        sync.Mutex
	callbacks []BudgetAlertCallback
	fired     map[string]bool
}

// NewBudgetNotifier creates an empty notifier.
func NewBudgetNotifier() *BudgetNotifier {
	return &BudgetNotifier{fired: make(map[string]bool)}
}

// OnAlert registers a callback for budget alerts.
func (bn *BudgetNotifier) OnAlert(cb BudgetAlertCallback) {
	if bn == nil || cb == nil {
		return
	}
	bn.mu.Lock()
	bn.callbacks = append(bn.callbacks, cb)
	bn.mu.Unlock()
}

// Check evaluates a status snapshot and fires newly crossed thresholds.
func (bn *BudgetNotifier) Check(status *BudgetStatus) {
	if bn == nil || status == nil {
		return
	}

	candidates := []BudgetAlert{
		{BudgetType: BudgetTypeSession, Percent: status.SessionPercent, Spent: status.SessionCost, Budget: status.SessionBudget},
		{BudgetType: BudgetTypeDaily, Percent: status.DailyPercent, Spent: status.DailyCost, Budget: status.DailyBudget},
		{BudgetType: BudgetTypeMonthly, Percent: status.MonthlyPercent, Spent: status.MonthlyCost, Budget: status.MonthlyBudget},
	}

	bn.mu.Lock()
	var due []BudgetAlert
	for _, alert := range candidates {
		if alert.Budget <= 0 {
			continue
		}
		alert.Level = levelForPercent(alert.Percent)
		if alert.Level == "" {
			continue
		}
		key := alert.BudgetType + ":" + string(alert.Level)
		if bn.fired[key] {
			continue
		}
		bn.fired[key] = true
		due = append(due, alert)
	}
	callbacks := append([]BudgetAlertCallback{}, bn.callbacks...)
	bn.mu.Unlock()

	for _, alert := range due {
		for _, cb := range callbacks {
			cb(alert)
		}
	}
}

func levelForPercent(percent float64) BudgetAlertLevel {
	switch {
	case percent >= 100:
		return BudgetAlertExceeded
	case percent >= 90:
		return BudgetAlertCritical
	case percent >= 75:
		return BudgetAlertWarning
	default:
		return ""
	}
}
