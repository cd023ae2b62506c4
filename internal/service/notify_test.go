package service

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/store"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/webhook"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (n *recordingNotifier) Dispatch(e webhook.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func TestNotifier_RuleChanges(t *testing.T) {
	n := &recordingNotifier{}
	svc := New(store.NewMemoryStore(), WithNotifier(n), WithEnvironment("test"))
	ctx := context.Background()

	a := mustCreate(t, svc, "age > 30")
	b := mustCreate(t, svc, "department = 'Sales'")
	combined, err := svc.Combine(ctx, []int64{a.ID, b.ID})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if _, err := svc.Modify(ctx, a.ID, "age > 40"); err != nil {
		t.Fatalf("Modify: %v", err)
	}
	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []struct {
		typ    string
		id     int64
		source string
	}{
		{webhook.EventRuleCreated, a.ID, "age > 30"},
		{webhook.EventRuleCreated, b.ID, "department = 'Sales'"},
		{webhook.EventRuleCombined, combined.ID, "(age > 30) AND (department = 'Sales')"},
		{webhook.EventRuleUpdated, a.ID, "age > 40"},
		{webhook.EventRuleDeleted, b.ID, ""},
	}
	if len(n.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(n.events), len(want))
	}
	for i, w := range want {
		e := n.events[i]
		if e.Type != w.typ || e.Rule.ID != w.id || e.Rule.Source != w.source {
			t.Errorf("event %d = %s %+v, want %s id=%d rule=%q", i, e.Type, e.Rule, w.typ, w.id, w.source)
		}
		if e.Environment != "test" {
			t.Errorf("event %d environment = %q", i, e.Environment)
		}
	}
	if !slices.Equal(n.events[2].Sources, []int64{a.ID, b.ID}) {
		t.Errorf("combine sources = %v", n.events[2].Sources)
	}
}

func TestNotifier_FailedOperationsAreSilent(t *testing.T) {
	n := &recordingNotifier{}
	svc := New(store.NewMemoryStore(), WithNotifier(n))
	ctx := context.Background()

	if _, err := svc.Create(ctx, "age >"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := svc.Modify(ctx, 99, "age > 1"); err == nil {
		t.Fatal("expected not found")
	}
	if _, err := svc.Combine(ctx, []int64{98, 99}); err == nil {
		t.Fatal("expected not found")
	}
	if len(n.events) != 0 {
		t.Errorf("failed operations published %d events", len(n.events))
	}
}
