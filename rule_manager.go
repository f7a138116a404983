package announcer

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/coregx/announcer/model"
)

// RuleManager handles the rule lists subscribers edit in their preferences.
// It validates requests, delegates ordering to the RuleRepository and
// reports changes to the NotificationService.
//
// Key operations:
//   - AddRule: append a rule to a subscriber's list for a distributor
//   - DeleteRule: remove a rule, closing the gap it leaves
//   - MoveRule: change a rule's priority
//   - SetFormat: change the style of a subscriber's announcements
//   - ListRules: the list in evaluation order
//
// Thread safety: Safe for concurrent use.
type RuleManager struct {
	rules         RuleRepository
	classes       map[string]bool
	logger        Logger
	notifications NotificationService
}

// RuleManagerOption is a function that configures a RuleManager.
type RuleManagerOption func(*RuleManager) error

// NewRuleManager creates a new RuleManager with the provided options.
//
// Required options:
//   - WithRuleManagerRepository: rule store
//   - WithRuleManagerLogger: logger instance
//
// Example:
//
//	manager, err := announcer.NewRuleManager(
//	    announcer.WithRuleManagerRepository(repos.Rule),
//	    announcer.WithRuleManagerLogger(logger),
//	)
func NewRuleManager(opts ...RuleManagerOption) (*RuleManager, error) {
	rm := &RuleManager{notifications: &NoOpNotificationService{}}

	for _, opt := range opts {
		if err := opt(rm); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply rule manager option", err)
		}
	}

	if rm.rules == nil {
		return nil, NewError(ErrCodeConfiguration, "RuleRepository is required (use WithRuleManagerRepository)")
	}
	if rm.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithRuleManagerLogger)")
	}

	return rm, nil
}

// WithRuleManagerRepository sets the rule store.
func WithRuleManagerRepository(rules RuleRepository) RuleManagerOption {
	return func(rm *RuleManager) error {
		if rules == nil {
			return fmt.Errorf("rule repository cannot be nil")
		}
		rm.rules = rules
		return nil
	}
}

// WithRuleManagerLogger sets the logger instance.
func WithRuleManagerLogger(logger Logger) RuleManagerOption {
	return func(rm *RuleManager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		rm.logger = logger
		return nil
	}
}

// WithRuleManagerMatchers restricts new rules to the registry's classes.
// Without it any non-empty class is accepted.
func WithRuleManagerMatchers(registry *MatcherRegistry) RuleManagerOption {
	return func(rm *RuleManager) error {
		if registry == nil {
			return fmt.Errorf("matcher registry cannot be nil")
		}
		rm.classes = make(map[string]bool)
		for _, class := range registry.Classes() {
			rm.classes[class] = true
		}
		return nil
	}
}

// WithRuleManagerNotifications sets the notification service.
// Default: NoOpNotificationService.
func WithRuleManagerNotifications(service NotificationService) RuleManagerOption {
	return func(rm *RuleManager) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		rm.notifications = service
		return nil
	}
}

// AddRuleRequest represents a request to add a rule.
type AddRuleRequest struct {
	SID           string `json:"sid"`           // Subscriber session id (required)
	Authenticated bool   `json:"authenticated"` // Subscriber session kind
	Distributor   string `json:"distributor"`   // Delivery channel (required)
	Format        string `json:"format"`        // Requested style, "" for default
	Adverb        string `json:"adverb"`        // accept/deny (required; always/never accepted)
	Class         string `json:"class"`         // Rule class (required)
}

// Validate checks the request fields.
func (r AddRuleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SID, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Distributor, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Format, validation.Length(0, 64)),
		validation.Field(&r.Adverb, validation.Required, validation.By(func(value interface{}) error {
			_, err := model.ParseAdverb(value.(string))
			return err
		})),
		validation.Field(&r.Class, validation.Required, validation.Length(1, 64)),
	)
}

// AddRule appends a rule to the subscriber's list for the distributor.
// The new rule gets the lowest precedence of the list.
func (rm *RuleManager) AddRule(ctx context.Context, req AddRuleRequest) (*model.Rule, error) {
	if err := req.Validate(); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid rule", err)
	}
	if rm.classes != nil && !rm.classes[req.Class] {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("unknown rule class: %s", req.Class))
	}
	adverb, _ := model.ParseAdverb(req.Adverb)

	rule := model.NewRule(model.NewIdentity(req.SID, req.Authenticated), req.Distributor, req.Format, adverb, req.Class)
	rule, err := rm.rules.Add(ctx, rule)
	if err != nil {
		return nil, storeError("failed to add rule", err)
	}

	rm.logger.Infof("Rule added: id=%d, group=%s, priority=%d, adverb=%s, class=%s",
		rule.ID, rule.Group(), rule.Priority, rule.Adverb, rule.Class)
	rm.notify(func() error { return rm.notifications.NotifyRuleAdded(ctx, rule) })

	return &rule, nil
}

// DeleteRule removes a rule. The remaining rules of its list keep their
// order and close the gap.
func (rm *RuleManager) DeleteRule(ctx context.Context, id int64) error {
	if id == 0 {
		return NewError(ErrCodeValidation, "rule ID is required")
	}
	rule, err := rm.rules.Load(ctx, id)
	if err != nil {
		return storeError("failed to load rule", err)
	}
	if err := rm.rules.Delete(ctx, id); err != nil {
		return storeError("failed to delete rule", err)
	}

	rm.logger.Infof("Rule deleted: id=%d, group=%s", id, rule.Group())
	rm.notify(func() error { return rm.notifications.NotifyRuleDeleted(ctx, rule) })
	return nil
}

// MoveRule places a rule at the given priority. Priorities outside the
// list leave it unchanged.
func (rm *RuleManager) MoveRule(ctx context.Context, id int64, priority int) error {
	if id == 0 {
		return NewError(ErrCodeValidation, "rule ID is required")
	}
	rule, err := rm.rules.Load(ctx, id)
	if err != nil {
		return storeError("failed to load rule", err)
	}
	if rule.Priority == priority {
		return nil
	}
	if err := rm.rules.Move(ctx, id, priority); err != nil {
		return storeError("failed to move rule", err)
	}

	moved, err := rm.rules.Load(ctx, id)
	if err != nil {
		return storeError("failed to reload rule", err)
	}
	if moved.Priority == rule.Priority {
		rm.logger.Debugf("Rule not moved, priority out of range: id=%d, priority=%d", id, priority)
		return nil
	}
	rm.logger.Infof("Rule moved: id=%d, group=%s, from=%d, to=%d", id, rule.Group(), rule.Priority, moved.Priority)
	rm.notify(func() error { return rm.notifications.NotifyRuleMoved(ctx, moved, rule.Priority, moved.Priority) })
	return nil
}

// SetFormat sets the requested style of all the subscriber's rules for a distributor.
func (rm *RuleManager) SetFormat(ctx context.Context, subscriber model.Identity, distributor, format string) error {
	if subscriber.IsZero() {
		return NewError(ErrCodeValidation, "subscriber is required")
	}
	if distributor == "" {
		return NewError(ErrCodeValidation, "distributor is required")
	}
	if err := rm.rules.UpdateFormat(ctx, distributor, subscriber, format); err != nil {
		return storeError("failed to update format", err)
	}
	rm.logger.Infof("Format updated: subscriber=%s, distributor=%s, format=%q", subscriber, distributor, format)
	return nil
}

// ListRules returns the subscriber's rules for a distributor in evaluation order.
// Returns an empty slice if there are none.
func (rm *RuleManager) ListRules(ctx context.Context, subscriber model.Identity, distributor string) ([]model.Rule, error) {
	if subscriber.IsZero() {
		return nil, NewError(ErrCodeValidation, "subscriber is required")
	}
	rules, err := rm.rules.FindBySubscriberAndDistributor(ctx, subscriber, distributor)
	if err != nil {
		return nil, storeError("failed to load rules", err)
	}
	if rules == nil {
		rules = []model.Rule{}
	}
	return rules, nil
}

// GetRule retrieves a single rule by id.
func (rm *RuleManager) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if id == 0 {
		return nil, NewError(ErrCodeValidation, "rule ID is required")
	}
	rule, err := rm.rules.Load(ctx, id)
	if err != nil {
		return nil, storeError("failed to load rule", err)
	}
	return &rule, nil
}

func (rm *RuleManager) notify(send func() error) {
	if err := send(); err != nil {
		rm.logger.Warnf("Failed to send rule notification: error=%v", err)
	}
}

// storeError passes announcer errors through and wraps anything else as a
// database error.
func storeError(message string, err error) error {
	var announcerErr *Error
	if errors.As(err, &announcerErr) {
		return err
	}
	return NewErrorWithCause(ErrCodeDatabase, message, err)
}
