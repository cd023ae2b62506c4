package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// testStoreContract exercises behaviour every Store implementation must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create assigns distinct ids", func(t *testing.T) {
		s := newStore(t)
		a, err := s.CreateRule(ctx, CreateParams{Source: "age > 30", AST: `{"a":1}`})
		if err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}
		b, err := s.CreateRule(ctx, CreateParams{Source: "age < 10", AST: `{"b":2}`})
		if err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}
		if a.ID == b.ID {
			t.Fatalf("expected distinct ids, both %d", a.ID)
		}
		if a.Source != "age > 30" || a.AST != `{"a":1}` {
			t.Errorf("unexpected rule %+v", a)
		}
		if a.CreatedAt.IsZero() || a.UpdatedAt.IsZero() {
			t.Error("expected timestamps to be set")
		}
	})

	t.Run("get returns stored rule", func(t *testing.T) {
		s := newStore(t)
		created, _ := s.CreateRule(ctx, CreateParams{Source: "x = 1", AST: "tree"})
		got, err := s.GetRule(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if got.ID != created.ID || got.Source != "x = 1" || got.AST != "tree" {
			t.Errorf("unexpected rule %+v", got)
		}
	})

	t.Run("get missing is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRule(ctx, 999)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("get many keeps request order", func(t *testing.T) {
		s := newStore(t)
		a, _ := s.CreateRule(ctx, CreateParams{Source: "a = 1", AST: "A"})
		b, _ := s.CreateRule(ctx, CreateParams{Source: "b = 1", AST: "B"})
		got, err := s.GetRules(ctx, []int64{b.ID, a.ID, b.ID})
		if err != nil {
			t.Fatalf("GetRules failed: %v", err)
		}
		var asts []string
		for _, r := range got {
			asts = append(asts, r.AST)
		}
		if want := []string{"B", "A", "B"}; !reflect.DeepEqual(asts, want) {
			t.Errorf("got %v, want %v", asts, want)
		}
	})

	t.Run("get many reports every missing id", func(t *testing.T) {
		s := newStore(t)
		a, _ := s.CreateRule(ctx, CreateParams{Source: "a = 1", AST: "A"})
		_, err := s.GetRules(ctx, []int64{a.ID, 500, 501, 500})
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected *NotFoundError, got %v", err)
		}
		if !reflect.DeepEqual(nf.IDs, []int64{500, 501}) {
			t.Errorf("missing ids = %v, want [500 501]", nf.IDs)
		}
		if !errors.Is(err, ErrNotFound) {
			t.Error("NotFoundError should wrap ErrNotFound")
		}
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if empty == nil || len(empty) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", empty)
		}
		for _, src := range []string{"a = 1", "b = 2", "c = 3"} {
			if _, err := s.CreateRule(ctx, CreateParams{Source: src, AST: src}); err != nil {
				t.Fatalf("CreateRule failed: %v", err)
			}
		}
		list, err := s.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 rules, got %d", len(list))
		}
		for i := 1; i < len(list); i++ {
			if list[i-1].ID >= list[i].ID {
				t.Errorf("list not ordered by id: %d before %d", list[i-1].ID, list[i].ID)
			}
		}
	})

	t.Run("update replaces content and keeps id", func(t *testing.T) {
		s := newStore(t)
		created, _ := s.CreateRule(ctx, CreateParams{Source: "a = 1", AST: "old"})
		updated, err := s.UpdateRule(ctx, created.ID, UpdateParams{Source: "a = 2", AST: "new"})
		if err != nil {
			t.Fatalf("UpdateRule failed: %v", err)
		}
		if updated.ID != created.ID || updated.Source != "a = 2" || updated.AST != "new" {
			t.Errorf("unexpected rule %+v", updated)
		}
		got, _ := s.GetRule(ctx, created.ID)
		if got.AST != "new" {
			t.Errorf("expected stored tree to change, got %q", got.AST)
		}
		if got.UpdatedAt.Before(created.UpdatedAt) {
			t.Error("UpdatedAt went backwards")
		}
	})

	t.Run("update missing is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateRule(ctx, 42, UpdateParams{Source: "a = 1", AST: "x"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete is idempotent and ids are not reused", func(t *testing.T) {
		s := newStore(t)
		created, _ := s.CreateRule(ctx, CreateParams{Source: "a = 1", AST: "A"})
		if err := s.DeleteRule(ctx, created.ID); err != nil {
			t.Fatalf("DeleteRule failed: %v", err)
		}
		if err := s.DeleteRule(ctx, created.ID); err != nil {
			t.Fatalf("second DeleteRule failed: %v", err)
		}
		if _, err := s.GetRule(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		next, _ := s.CreateRule(ctx, CreateParams{Source: "b = 1", AST: "B"})
		if next.ID == created.ID {
			t.Errorf("id %d was reused", next.ID)
		}
	})
}
