package announcer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/coregx/announcer/model"
)

// Outcome is what happened to one (subscriber, distributor) pair during a dispatch.
type Outcome string

const (
	OutcomeDelivered        Outcome = "delivered"         // handed to the distributor
	OutcomeDenied           Outcome = "denied"            // a deny rule matched, or no rule matched under a deny default
	OutcomeFiltered         Outcome = "filtered"          // a subscription filter refused
	OutcomeNoAddress        Outcome = "no_address"        // no resolver knew an address
	OutcomeUnsupportedStyle Outcome = "unsupported_style" // no usable style for the realm
	OutcomeNoDistributor    Outcome = "no_distributor"    // rules name a distributor that is not configured
	OutcomeFailed           Outcome = "failed"            // store, matcher, formatter or transport error
)

// Result records the outcome for one (subscriber, distributor) pair.
type Result struct {
	Subscriber  model.Identity
	Distributor string
	Outcome     Outcome
	RuleID      int64  // deciding rule, 0 when none matched
	Address     string // set once resolved
	Style       string // set once negotiated
	Raw         bool   // content degraded to raw text after a render failure
	Err         error
}

// Report summarises one dispatch.
type Report struct {
	Realm    string
	Category string
	TargetID string
	Results  []Result

	// Errors holds candidate discovery failures. The classes they concern
	// were not evaluated; every other class was.
	Errors []error
}

// Count returns the number of results with the given outcome.
func (r *Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// Delivered returns the results that reached a distributor.
func (r *Report) Delivered() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeDelivered {
			out = append(out, res)
		}
	}
	return out
}

// Metrics receives dispatch measurements.
type Metrics interface {
	ObserveDispatch(realm, category string, elapsed time.Duration)
	RecordOutcome(realm, distributor string, outcome Outcome)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDispatch(string, string, time.Duration) {}
func (noopMetrics) RecordOutcome(string, string, Outcome)         {}

// channel is a configured distributor and the resolvers for its addresses.
type channel struct {
	distributor Distributor
	resolvers   []AddressResolver
	chain       *ResolverChain
}

// Announcer dispatches events to the subscribers whose rules accept them.
//
// For every event it discovers the (subscriber, distributor) pairs that
// own rules of a registered class, evaluates each pair's rule chain once,
// and for accepted pairs resolves an address, negotiates a style, formats
// and renders the content and hands it to the distributor.
//
// Failures are isolated per pair: they end up in the Report and the log,
// never in the error returned by Send.
//
// Thread safety: Safe for concurrent use. A single event is dispatched
// sequentially on the caller's goroutine.
type Announcer struct {
	rules         RuleRepository
	matchers      *MatcherRegistry
	formatters    *FormatterRegistry
	renderer      Renderer
	distributors  map[string]*channel
	filters       []SubscriptionFilter
	logger        Logger
	project       Project
	defaultAdverb model.Adverb
	metrics       Metrics
	notifications NotificationService
}

// New creates an Announcer with the provided options.
//
// Required options:
//   - WithRuleRepository: rule store
//   - WithMatchers: rule class matchers
//   - WithFormatters: realm formatters
//   - WithDistributor: at least one delivery channel
//   - WithLogger: logger instance
//
// Optional options:
//   - WithRenderer: default is the embedded TemplateRenderer
//   - WithFilters, WithProject, WithMetrics, WithNotifications
//   - WithDefaultAdverb: default deny
func New(opts ...Option) (*Announcer, error) {
	a := &Announcer{
		distributors:  make(map[string]*channel),
		defaultAdverb: model.AdverbDeny,
		metrics:       noopMetrics{},
		notifications: &NoOpNotificationService{},
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply option", err)
		}
	}

	if a.rules == nil {
		return nil, NewError(ErrCodeConfiguration, "RuleRepository is required (use WithRuleRepository)")
	}
	if a.matchers == nil {
		return nil, NewError(ErrCodeConfiguration, "matchers are required (use WithMatchers)")
	}
	if a.formatters == nil {
		return nil, NewError(ErrCodeConfiguration, "formatters are required (use WithFormatters)")
	}
	if len(a.distributors) == 0 {
		return nil, NewError(ErrCodeConfiguration, "at least one Distributor is required (use WithDistributor)")
	}
	if a.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLogger)")
	}
	if a.renderer == nil {
		renderer, err := NewTemplateRenderer()
		if err != nil {
			return nil, err
		}
		a.renderer = renderer
	}
	for _, ch := range a.distributors {
		ch.chain = NewResolverChain(a.logger, ch.resolvers...)
	}

	return a, nil
}

// dispatch carries the per-event state of a Send call.
type dispatch struct {
	event     model.Event
	report    *Report
	messageID string
	contents  map[string]rendered
}

type rendered struct {
	content string
	raw     bool
	err     error
}

// Send dispatches an event. It returns an error only when the event itself
// is unusable; everything that goes wrong for individual subscribers is
// recorded in the report.
func (a *Announcer) Send(ctx context.Context, event model.Event) (*Report, error) {
	if event == nil {
		return nil, NewError(ErrCodeValidation, "event cannot be nil")
	}
	if v, ok := event.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, NewErrorWithCause(ErrCodeValidation, "invalid event", err)
		}
	}

	start := time.Now()
	report := &Report{Realm: event.Realm(), Category: event.Category()}
	if target := event.Target(); target != nil {
		report.TargetID = target.ResourceID()
	}
	d := &dispatch{
		event:     event,
		report:    report,
		messageID: MessageID(UID(a.project.URL, report.Realm, report.TargetID), a.host()),
		contents:  make(map[string]rendered),
	}

	for _, group := range a.discover(ctx, event, report) {
		a.dispatchGroup(ctx, d, group)
	}

	a.metrics.ObserveDispatch(report.Realm, report.Category, time.Since(start))
	a.logger.Infof("Event dispatched: realm=%s, category=%s, target=%s, pairs=%d, delivered=%d, failed=%d",
		report.Realm, report.Category, report.TargetID, len(report.Results),
		report.Count(OutcomeDelivered), report.Count(OutcomeFailed))

	return report, nil
}

// discover collects the (subscriber, distributor) groups owning rules of
// any registered class, in discovery order without duplicates.
func (a *Announcer) discover(ctx context.Context, event model.Event, report *Report) []model.Group {
	seen := make(map[model.Group]bool)
	var groups []model.Group
	for _, class := range a.matchers.Classes() {
		rules, err := a.candidateRules(ctx, event, class)
		if err != nil {
			a.logger.Errorf("Candidate discovery failed: class=%s, realm=%s, error=%v", class, event.Realm(), err)
			report.Errors = append(report.Errors, err)
			continue
		}
		for _, rule := range rules {
			group := rule.Group()
			if !seen[group] {
				seen[group] = true
				groups = append(groups, group)
			}
		}
	}
	return groups
}

func (a *Announcer) candidateRules(ctx context.Context, event model.Event, class string) ([]model.Rule, error) {
	matcher, _ := a.matchers.Lookup(class)
	finder, ok := matcher.(CandidateFinder)
	if !ok {
		return a.rules.FindByClass(ctx, class)
	}
	subscribers, err := finder.Candidates(ctx, event)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeMatch, fmt.Sprintf("candidates of class %q", class), err)
	}
	if len(subscribers) == 0 {
		return nil, nil
	}
	return a.rules.FindBySubscribersAndClass(ctx, subscribers, class)
}

func (a *Announcer) dispatchGroup(ctx context.Context, d *dispatch, group model.Group) {
	result := Result{Subscriber: group.Subscriber, Distributor: group.Distributor}
	defer func() {
		d.report.Results = append(d.report.Results, result)
		a.metrics.RecordOutcome(d.report.Realm, group.Distributor, result.Outcome)
	}()
	fail := func(err error) {
		result.Outcome = OutcomeFailed
		result.Err = err
		a.logger.Errorf("Announcement failed: group=%s, target=%s, error=%v", group, d.report.TargetID, err)
		if nerr := a.notifications.NotifyDeliveryFailure(ctx, d.event, result); nerr != nil {
			a.logger.Warnf("Failed to send delivery failure notification: group=%s, error=%v", group, nerr)
		}
	}

	ch, ok := a.distributors[group.Distributor]
	if !ok {
		result.Outcome = OutcomeNoDistributor
		a.logger.Debugf("No such distributor: group=%s", group)
		return
	}

	rules, err := a.rules.FindBySubscriberAndDistributor(ctx, group.Subscriber, group.Distributor)
	if err != nil {
		fail(err)
		return
	}
	verdict, err := Evaluate(ctx, a.matchers, d.event, rules)
	for _, class := range verdict.Skipped {
		a.logger.Debugf("Rule class not registered, rule skipped: group=%s, class=%s", group, class)
	}
	if err != nil {
		fail(err)
		return
	}
	result.RuleID = verdict.Rule.ID
	if !verdict.Deliver(a.defaultAdverb) {
		result.Outcome = OutcomeDenied
		return
	}

	for _, filter := range a.filters {
		allowed, err := filter.Allow(ctx, d.event, group.Subscriber, group.Distributor)
		if err != nil {
			fail(err)
			return
		}
		if !allowed {
			result.Outcome = OutcomeFiltered
			return
		}
	}

	address, ok := ch.chain.Resolve(ctx, group.Subscriber)
	if !ok {
		result.Outcome = OutcomeNoAddress
		a.logger.Infof("Unresolved address: group=%s", group)
		return
	}
	result.Address = address

	format := verdict.Rule.Format
	if !verdict.Matched && len(rules) > 0 {
		format = rules[0].Format
	}
	style, ok := a.formatters.Negotiate(d.event.Realm(), format)
	if !ok {
		result.Outcome = OutcomeUnsupportedStyle
		a.logger.Warnf("No usable style: group=%s, realm=%s, requested=%q", group, d.event.Realm(), format)
		return
	}
	result.Style = style

	content := a.content(ctx, d, style)
	if content.err != nil {
		fail(content.err)
		return
	}
	result.Raw = content.raw

	err = ch.distributor.Distribute(ctx, Delivery{
		Identity:    group.Subscriber,
		Address:     address,
		Distributor: group.Distributor,
		Style:       style,
		Content:     content.content,
		MessageID:   d.messageID,
		Event:       d.event,
	})
	if err != nil {
		fail(NewErrorWithCause(ErrCodeDelivery, fmt.Sprintf("distributor %q", group.Distributor), err))
		return
	}
	result.Outcome = OutcomeDelivered
}

// content formats and renders the event once per style.
func (a *Announcer) content(ctx context.Context, d *dispatch, style string) rendered {
	if r, ok := d.contents[style]; ok {
		return r
	}
	var r rendered
	realm := d.event.Realm()
	formatter, ok := a.formatters.Lookup(realm)
	if !ok {
		r.err = NewError(ErrCodeConfiguration, fmt.Sprintf("no formatter for realm %q", realm))
	} else if data, err := formatter.Data(ctx, a.project, style, d.event); err != nil {
		r.err = err
	} else {
		for _, w := range data.Warnings {
			a.logger.Warnf("Formatter warning: realm=%s, target=%s, %s", realm, data.TargetID, w)
		}
		content, ok := RenderContent(ctx, a.renderer, a.logger, realm, style, data)
		r = rendered{content: content, raw: !ok}
	}
	d.contents[style] = r
	return r
}

// host returns the host name used in message ids.
func (a *Announcer) host() string {
	u, err := url.Parse(a.project.URL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return u.Hostname()
}
