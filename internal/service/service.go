// Package service implements the rule operations (create, combine,
// evaluate, modify and their read-side companions) on top of an injected
// store.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/logic"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/snapshot"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/store"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/telemetry"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/validation"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/webhook"
)

const defaultConcurrency = 8

// Service composes the parser, evaluator and combinator with a rule store.
// It is safe for concurrent use.
type Service struct {
	store         store.Store
	cache         *snapshot.Cache
	logger        zerolog.Logger
	maxRuleLength int
	concurrency   int
	notifier      webhook.Notifier
	env           string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for operation logs.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxRuleLength limits rule text length in bytes.
func WithMaxRuleLength(n int) Option {
	return func(s *Service) { s.maxRuleLength = n }
}

// WithConcurrency bounds the number of rules EvaluateMany evaluates at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithNotifier publishes rule change events to n.
func WithNotifier(n webhook.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithEnvironment tags published events with env.
func WithEnvironment(env string) Option {
	return func(s *Service) { s.env = env }
}

// New returns a Service backed by st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:         st,
		cache:         snapshot.NewCache(),
		logger:        zerolog.Nop(),
		maxRuleLength: validation.DefaultMaxRuleLength,
		concurrency:   defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RuleView is a stored rule with its decoded tree.
type RuleView struct {
	ID        int64       `json:"id" yaml:"id"`
	Source    string      `json:"rule" yaml:"rule"`
	AST       *rules.Tree `json:"ast" yaml:"ast"`
	Encoded   string      `json:"-" yaml:"-"`
	ETag      string      `json:"-" yaml:"-"`
	CreatedAt time.Time   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" yaml:"updatedAt"`
}

func newView(r *store.Rule, node rules.Node) *RuleView {
	return &RuleView{
		ID:        r.ID,
		Source:    r.Source,
		AST:       rules.Serialize(node),
		Encoded:   r.AST,
		ETag:      snapshot.ETag(r.AST),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// BatchResult is the outcome of evaluating one rule in EvaluateMany.
type BatchResult struct {
	ID     int64  `json:"id" yaml:"id"`
	Result bool   `json:"result" yaml:"result"`
	Err    error  `json:"-" yaml:"-"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Parse parses and validates text without storing it.
func (s *Service) Parse(text string) (rules.Node, error) {
	if res := validation.ValidateRuleText("rule", text, s.maxRuleLength); !res.Valid {
		return nil, &ValidationError{Fields: res.Errors}
	}
	node, err := rules.ParseString(text)
	telemetry.ObserveParse(err)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Create parses text and stores it as a new rule.
func (s *Service) Create(ctx context.Context, text string) (*RuleView, error) {
	node, err := s.Parse(text)
	if err != nil {
		return nil, err
	}
	encoded, err := rules.Marshal(node)
	if err != nil {
		return nil, err
	}
	r, err := s.store.CreateRule(ctx, store.CreateParams{Source: text, AST: encoded})
	if err != nil {
		return nil, fmt.Errorf("store rule: %w", err)
	}
	s.remember(r.ID, encoded, node)

	s.logger.Debug().Int64("rule_id", r.ID).Int("depth", rules.Depth(node)).Msg("rule created")
	s.notify(webhook.NewEventBuilder(ctx, webhook.EventRuleCreated).ForRule(r.ID, r.Source))
	return newView(r, node), nil
}

// Combine loads the rules with the given ids, joins them with AND in the
// order given and stores the result as a new rule.
func (s *Service) Combine(ctx context.Context, ids []int64) (*RuleView, error) {
	if len(ids) == 0 {
		return nil, rules.ErrArity
	}
	if res := validation.ValidateRuleIDs("ids", ids); !res.Valid {
		return nil, &ValidationError{Fields: res.Errors}
	}

	stored, err := s.store.GetRules(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	nodes := make([]rules.Node, len(stored))
	sources := make([]string, len(stored))
	for i := range stored {
		node, err := s.decode(&stored[i])
		if err != nil {
			return nil, err
		}
		nodes[i] = node
		sources[i] = stored[i].Source
	}

	combined, err := rules.Combine(nodes...)
	if err != nil {
		return nil, err
	}
	if d := rules.Depth(combined); d > rules.MaxStoredDepth {
		return nil, &ValidationError{Fields: map[string]string{
			"ids": fmt.Sprintf("Combined rule would be %d levels deep, at most %d are allowed", d, rules.MaxStoredDepth),
		}}
	}
	encoded, err := rules.Marshal(combined)
	if err != nil {
		return nil, err
	}
	source := rules.CombineSources(sources...)
	if len(encoded) > rules.MaxEncodedSize || len(source) > rules.MaxEncodedSize {
		return nil, &ValidationError{Fields: map[string]string{
			"ids": fmt.Sprintf("Combined rule would exceed %d bytes", rules.MaxEncodedSize),
		}}
	}
	r, err := s.store.CreateRule(ctx, store.CreateParams{Source: source, AST: encoded})
	if err != nil {
		return nil, fmt.Errorf("store combined rule: %w", err)
	}
	s.remember(r.ID, encoded, combined)
	telemetry.RulesCombined.Inc()

	s.logger.Debug().Int64("rule_id", r.ID).Ints64("sources", ids).Msg("rules combined")
	s.notify(webhook.NewEventBuilder(ctx, webhook.EventRuleCombined).ForRule(r.ID, r.Source).WithSources(ids))
	return newView(r, combined), nil
}

// Evaluate reports whether record satisfies rule id.
func (s *Service) Evaluate(ctx context.Context, id int64, record engine.Record) (bool, error) {
	node, err := s.load(ctx, id, record)
	if err != nil {
		return false, err
	}
	result, err := engine.Evaluate(node, record)
	telemetry.ObserveEvaluation(result, err)
	if err != nil {
		return false, err
	}
	return result, nil
}

// Explain evaluates rule id and returns the comparisons visited on the way.
func (s *Service) Explain(ctx context.Context, id int64, record engine.Record) (engine.Result, error) {
	node, err := s.load(ctx, id, record)
	if err != nil {
		return engine.Result{}, err
	}
	res, err := engine.EvaluateTrace(node, record)
	telemetry.ObserveEvaluation(res.Value, err)
	return res, err
}

// EvaluateMany evaluates several rules against one record. A failure on one
// rule is reported in its BatchResult and does not affect the others.
func (s *Service) EvaluateMany(ctx context.Context, ids []int64, record engine.Record) ([]BatchResult, error) {
	res := validation.ValidateRuleIDs("ids", ids)
	res.Merge(validation.ValidateRecord("data", record))
	if !res.Valid {
		return nil, &ValidationError{Fields: res.Errors}
	}

	mapper := iter.Mapper[int64, BatchResult]{MaxGoroutines: s.concurrency}
	return mapper.Map(ids, func(id *int64) BatchResult {
		out := BatchResult{ID: *id}
		out.Result, out.Err = s.Evaluate(ctx, *id, record)
		if out.Err != nil {
			out.Error = out.Err.Error()
		}
		return out
	}), nil
}

// Modify replaces the text of rule id. The rule keeps its id.
func (s *Service) Modify(ctx context.Context, id int64, text string) (*RuleView, error) {
	if res := validation.ValidateRuleID("id", id); !res.Valid {
		return nil, &ValidationError{Fields: res.Errors}
	}
	node, err := s.Parse(text)
	if err != nil {
		return nil, err
	}
	encoded, err := rules.Marshal(node)
	if err != nil {
		return nil, err
	}
	r, err := s.store.UpdateRule(ctx, id, store.UpdateParams{Source: text, AST: encoded})
	if err != nil {
		return nil, fmt.Errorf("update rule %d: %w", id, err)
	}
	s.remember(r.ID, encoded, node)

	s.logger.Debug().Int64("rule_id", id).Msg("rule modified")
	s.notify(webhook.NewEventBuilder(ctx, webhook.EventRuleUpdated).ForRule(r.ID, r.Source))
	return newView(r, node), nil
}

// Get returns rule id.
func (s *Service) Get(ctx context.Context, id int64) (*RuleView, error) {
	r, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rule %d: %w", id, err)
	}
	node, err := s.decode(r)
	if err != nil {
		return nil, err
	}
	return newView(r, node), nil
}

// List returns every rule ordered by id.
func (s *Service) List(ctx context.Context) ([]RuleView, error) {
	stored, err := s.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	views := make([]RuleView, 0, len(stored))
	for i := range stored {
		node, err := s.decode(&stored[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *newView(&stored[i], node))
	}
	return views, nil
}

// Delete removes rule id. Deleting a missing rule is not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete rule %d: %w", id, err)
	}
	s.cache.Invalidate(id)
	telemetry.RuleCacheEntries.Set(float64(s.cache.Len()))

	s.logger.Debug().Int64("rule_id", id).Msg("rule deleted")
	s.notify(webhook.NewEventBuilder(ctx, webhook.EventRuleDeleted).ForRule(id, ""))
	return nil
}

// JSONLogic returns rule id as a JSON Logic expression.
func (s *Service) JSONLogic(ctx context.Context, id int64) (map[string]any, error) {
	r, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rule %d: %w", id, err)
	}
	node, err := s.decode(r)
	if err != nil {
		return nil, err
	}
	return logic.Export(node)
}

// load validates record and returns the decoded tree of rule id.
func (s *Service) load(ctx context.Context, id int64, record engine.Record) (rules.Node, error) {
	if res := validation.ValidateRecord("data", record); !res.Valid {
		return nil, &ValidationError{Fields: res.Errors}
	}
	r, err := s.store.GetRule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rule %d: %w", id, err)
	}
	return s.decode(r)
}

func (s *Service) decode(r *store.Rule) (rules.Node, error) {
	node, hit, err := s.cache.Load(r.ID, r.AST)
	if err != nil {
		s.logger.Error().Err(err).Int64("rule_id", r.ID).Msg("stored rule tree is corrupt")
		return nil, fmt.Errorf("decode rule %d: %w", r.ID, err)
	}
	if !hit {
		telemetry.RuleCacheEntries.Set(float64(s.cache.Len()))
	}
	return node, nil
}

func (s *Service) notify(b *webhook.EventBuilder) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(b.InEnvironment(s.env).Build())
}

func (s *Service) remember(id int64, encoded string, node rules.Node) {
	s.cache.Store(id, encoded, node)
	telemetry.RuleCacheEntries.Set(float64(s.cache.Len()))
}
