package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested rule id does not exist.
var ErrNotFound = errors.New("rule not found")

// NotFoundError lists the ids of a multi-rule lookup that do not exist.
type NotFoundError struct {
	IDs []int64
}

func (e *NotFoundError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%v: %s", ErrNotFound, strings.Join(ids, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

//go:generate mockgen -source=store.go -destination=mock_store.go -package=store

// Store defines the interface for rule persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// CreateRule persists a new rule and returns it with its assigned id.
	// Ids are unique and never reused.
	CreateRule(ctx context.Context, params CreateParams) (*Rule, error)

	// GetRule retrieves a single rule by id.
	// Returns ErrNotFound if no rule has that id.
	GetRule(ctx context.Context, id int64) (*Rule, error)

	// GetRules retrieves several rules in the order of ids. Duplicate ids
	// yield duplicate entries. If any id is missing the error is a
	// *NotFoundError naming every missing id.
	GetRules(ctx context.Context, ids []int64) ([]Rule, error)

	// ListRules returns every rule ordered by id.
	// Returns an empty slice if there are none.
	ListRules(ctx context.Context) ([]Rule, error)

	// UpdateRule replaces the source text and tree of an existing rule.
	// Returns ErrNotFound if no rule has that id.
	UpdateRule(ctx context.Context, id int64, params UpdateParams) (*Rule, error)

	// DeleteRule removes a rule by id.
	// Returns no error if the rule doesn't exist (idempotent).
	DeleteRule(ctx context.Context, id int64) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// Rule is a persisted rule: its source text and the encoded tree parsed
// from it.
type Rule struct {
	ID        int64     `json:"id"`
	Source    string    `json:"rule"`
	AST       string    `json:"ast"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateParams contains the parameters for creating a rule.
type CreateParams struct {
	Source string
	AST    string
}

// UpdateParams contains the parameters for replacing a rule's content.
type UpdateParams struct {
	Source string
	AST    string
}

// missingIDs returns the ids absent from found, without duplicates, in
// first-seen order.
func missingIDs(ids []int64, found map[int64]Rule) []int64 {
	var missing []int64
	seen := make(map[int64]struct{})
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}

// orderRules arranges found rules in the order of ids, or reports the
// missing ones.
func orderRules(ids []int64, found map[int64]Rule) ([]Rule, error) {
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, &NotFoundError{IDs: missing}
	}
	out := make([]Rule, 0, len(ids))
	for _, id := range ids {
		out = append(out, found[id])
	}
	return out, nil
}
