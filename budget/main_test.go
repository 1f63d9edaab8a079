package budget

import (
	"testing"
	"time"
)

func TestUnboundedBudget(t *testing.T) {
	c := New(0, 0)
	if c.RemainingTimeMs() != Unbounded {
		t.Errorf("expected unbounded time, got %d", c.RemainingTimeMs())
	}
	if c.RemainingModels() != Unbounded {
		t.Errorf("expected unbounded models, got %d", c.RemainingModels())
	}
	if c.IsExpired() {
		t.Errorf("unbounded budget should not be expired")
	}
	if !c.HasCapacity() {
		t.Errorf("unbounded budget should have capacity")
	}
}

func TestModelQuota(t *testing.T) {
	c := New(0, 2)
	if c.RemainingModels() != 2 {
		t.Errorf("expected 2 remaining models, got %d", c.RemainingModels())
	}
	c.AddModels(3)
	if c.RemainingModels() != 0 {
		t.Errorf("remaining models should clamp to 0, got %d", c.RemainingModels())
	}
	if c.HasCapacity() {
		t.Errorf("budget over quota should have no capacity")
	}
	if c.ModelCount() != 3 {
		t.Errorf("expected model count 3, got %d", c.ModelCount())
	}
}

func TestDeadline(t *testing.T) {
	c := New(10*time.Millisecond, 0)
	if c.IsExpired() {
		t.Errorf("fresh budget should not be expired")
	}
	time.Sleep(30 * time.Millisecond)
	if !c.IsExpired() {
		t.Errorf("budget should be expired after the deadline")
	}
	if c.RemainingTimeMs() != 0 {
		t.Errorf("remaining time should clamp to 0, got %d", c.RemainingTimeMs())
	}
}

func TestForceExpire(t *testing.T) {
	c := New(time.Hour, 0)
	c.ForceExpire()
	if !c.IsExpired() {
		t.Errorf("force expired budget should be expired")
	}
	if c.HasCapacity() {
		t.Errorf("force expired budget should have no capacity")
	}
}
