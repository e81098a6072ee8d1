package cost

import "testing"

func statusAt(sessionPercent float64) *BudgetStatus {
	return &BudgetStatus{
		SessionBudget:  5,
		SessionCost:    5 * sessionPercent / 100,
		SessionPercent: sessionPercent,
	}
}

func TestNotifierFiresOnThreshold(t *testing.T) {
	bn := NewBudgetNotifier()
	var got []BudgetAlert
	bn.OnAlert(func(a BudgetAlert) { got = append(got, a) })

	bn.Check(statusAt(80))
	if len(got) != 1 {
		t.Fatalf("alerts = %d, want 1", len(got))
	}
	if got[0].Level != BudgetAlertWarning || got[0].BudgetType != BudgetTypeSession {
		t.Errorf("alert = %+v", got[0])
	}
}

func TestNotifierFiresEachLevelOnce(t *testing.T) {
	bn := NewBudgetNotifier()
	var got []BudgetAlert
	bn.OnAlert(func(a BudgetAlert) { got = append(got, a) })

	bn.Check(statusAt(80))
	bn.Check(statusAt(85)) // same level again, no new alert
	bn.Check(statusAt(95))
	bn.Check(statusAt(120))
	bn.Check(statusAt(130))

	want := []BudgetAlertLevel{BudgetAlertWarning, BudgetAlertCritical, BudgetAlertExceeded}
	if len(got) != len(want) {
		t.Fatalf("alerts = %d, want %d", len(got), len(want))
	}
	for i, level := range want {
		if got[i].Level != level {
			t.Errorf("alert %d level = %s, want %s", i, got[i].Level, level)
		}
	}
}

func TestNotifierIgnoresUnlimitedBudgets(t *testing.T) {
	bn := NewBudgetNotifier()
	fired := false
	bn.OnAlert(func(BudgetAlert) { fired = true })

	bn.Check(&BudgetStatus{SessionPercent: 500})
	if fired {
		t.Fatal("alert fired for a zero budget")
	}
}

func TestNotifierNilSafety(t *testing.T) {
	var bn *BudgetNotifier
	bn.Check(statusAt(120))
	bn.OnAlert(func(BudgetAlert) {})

	NewBudgetNotifier().Check(nil)
}
