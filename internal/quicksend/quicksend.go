// Package quicksend decides, for one trigger, which template fires
// automatically or whether the manual UI opens instead.
//
// The chain is strictly ordered: matching rule, then designated template,
// then the first template (only when no rules exist at all), then the
// manual UI. A matched rule whose template is missing or has no URL falls
// through to the designation without scanning the remaining rules.
package quicksend

import (
	"context"

	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/rules"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

// SnapshotLoader reads the persisted document once per invocation.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (store.Snapshot, error)
}

// PageInfo supplies the page context; it must not fail.
type PageInfo interface {
	PageContext(ctx context.Context, tab *pagecontext.Tab) pagecontext.Context
}

// Dispatcher sends the chosen template.
type Dispatcher interface {
	Dispatch(ctx context.Context, cfg webhook.Config, vars map[string]any) webhook.Result
}

// Surface is the user-facing feedback. Both calls are fire-and-forget.
type Surface interface {
	OpenManualUI(ctx context.Context)
	ShowResultIndicator(success bool)
}

// Fallback reasons reported in Outcome.Reason.
const (
	ReasonLoadError        = "load_error"
	ReasonNoStore          = "no_store"
	ReasonLegacyNoURL      = "legacy_without_url"
	ReasonNoTemplates      = "no_templates"
	ReasonNoMatch          = "no_usable_target"
	ReasonFirstTemplateURL = "first_template_without_url"
)

// Outcome describes how an invocation ended.
type Outcome struct {
	// State is StateDispatch or StateFallback.
	State State `json:"state"`
	// Via is the step that picked the target (StateLoad for a legacy config).
	Via        State           `json:"via"`
	TemplateID string          `json:"templateId,omitempty"`
	RuleID     string          `json:"ruleId,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Result     *webhook.Result `json:"result,omitempty"`
}

// Dispatched reports whether a request was attempted.
func (o Outcome) Dispatched() bool {
	return o.State == StateDispatch
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the debug logger for silent lookup misses.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithOutcomeHook registers a callback run after every invocation.
func WithOutcomeHook(fn func(Outcome)) Option {
	return func(r *Resolver) { r.hooks = append(r.hooks, fn) }
}

// Resolver runs the quick-send chain.
type Resolver struct {
	loader     SnapshotLoader
	pages      PageInfo
	dispatcher Dispatcher
	surface    Surface
	log        *zap.Logger
	hooks      []func(Outcome)
}

// New creates a resolver over its ports.
func New(loader SnapshotLoader, pages PageInfo, dispatcher Dispatcher, surface Surface, opts ...Option) *Resolver {
	r := &Resolver{
		loader:     loader,
		pages:      pages,
		dispatcher: dispatcher,
		surface:    surface,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run handles one trigger for tab (which may be nil).
func (r *Resolver) Run(ctx context.Context, tab *pagecontext.Tab) Outcome {
	inv := &invocation{r: r, tab: tab}

	state := StateLoad
	for !state.Terminal() {
		switch state {
		case StateLoad:
			state = inv.load(ctx)
		case StateRuleEvaluation:
			state = inv.evaluateRules(ctx)
		case StateDesignation:
			state = inv.designation()
		case StateFirstTemplate:
			state = inv.firstTemplate()
		default:
			inv.outcome.Reason = ReasonNoMatch
			state = StateFallback
		}
	}

	if state == StateDispatch {
		inv.dispatch(ctx)
	} else {
		inv.fallback(ctx)
	}

	for _, hook := range r.hooks {
		hook(inv.outcome)
	}
	return inv.outcome
}

// invocation carries the per-trigger data between transitions.
type invocation struct {
	r   *Resolver
	tab *pagecontext.Tab

	current    *store.Store
	rulesEmpty bool
	target     webhook.Config

	page    pagecontext.Context
	hasPage bool

	outcome Outcome
}

// pageContext asks the provider at most once per invocation.
func (inv *invocation) pageContext(ctx context.Context) pagecontext.Context {
	if !inv.hasPage {
		inv.page = inv.r.pages.PageContext(ctx, inv.tab)
		inv.hasPage = true
	}
	return inv.page
}

func (inv *invocation) choose(via State, tpl store.Template, ruleID string) State {
	inv.target = tpl.WebhookConfig()
	inv.outcome.Via = via
	inv.outcome.TemplateID = tpl.ID
	inv.outcome.RuleID = ruleID
	return StateDispatch
}

func (inv *invocation) fallbackWith(reason string) State {
	inv.outcome.Reason = reason
	return StateFallback
}

// load resolves the document shape once.
func (inv *invocation) load(ctx context.Context) State {
	snap, err := inv.r.loader.LoadSnapshot(ctx)
	if err != nil {
		inv.r.log.Debug("quick send: store unreadable", zap.Error(err))
		return inv.fallbackWith(ReasonLoadError)
	}

	switch snap.Kind {
	case store.SnapshotLegacy:
		tpl := snap.Legacy.Template()
		if !tpl.Configured() {
			return inv.fallbackWith(ReasonLegacyNoURL)
		}
		return inv.choose(StateLoad, tpl, "")
	case store.SnapshotCurrent:
		if len(snap.Current.Templates) == 0 {
			return inv.fallbackWith(ReasonNoTemplates)
		}
		inv.current = snap.Current
		return StateRuleEvaluation
	default:
		return inv.fallbackWith(ReasonNoStore)
	}
}

// evaluateRules scans once. A dead-end match goes to the designation step.
func (inv *invocation) evaluateRules(ctx context.Context) State {
	list := inv.current.QuickSendRules
	if len(list) == 0 {
		inv.rulesEmpty = true
		return StateDesignation
	}

	match := rules.FindFirstMatch(list, inv.pageContext(ctx).RulePage())
	if match == nil {
		return StateDesignation
	}

	tpl := inv.current.Template(match.TemplateID)
	if tpl == nil || !tpl.Configured() {
		inv.r.log.Debug("quick send: matched rule has no usable template",
			zap.String("rule", match.ID), zap.String("template", match.TemplateID))
		return StateDesignation
	}
	return inv.choose(StateRuleEvaluation, *tpl, match.ID)
}

func (inv *invocation) designation() State {
	if tpl := inv.current.DesignatedTemplate(); tpl != nil && tpl.Configured() {
		return inv.choose(StateDesignation, *tpl, "")
	}
	if inv.rulesEmpty {
		return StateFirstTemplate
	}
	return inv.fallbackWith(ReasonNoMatch)
}

func (inv *invocation) firstTemplate() State {
	first := inv.current.Templates[0]
	if !first.Configured() {
		return inv.fallbackWith(ReasonFirstTemplateURL)
	}
	return inv.choose(StateFirstTemplate, first, "")
}

func (inv *invocation) fallback(ctx context.Context) {
	inv.outcome.State = StateFallback
	inv.r.log.Debug("quick send: opening manual UI", zap.String("reason", inv.outcome.Reason))
	inv.r.surface.OpenManualUI(ctx)
}

func (inv *invocation) dispatch(ctx context.Context) {
	inv.outcome.State = StateDispatch
	result := inv.r.dispatcher.Dispatch(ctx, inv.target, inv.pageContext(ctx).Vars())
	inv.outcome.Result = &result
	inv.r.surface.ShowResultIndicator(result.OK)
}
