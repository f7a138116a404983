package announcer

import (
	"context"

	"github.com/coregx/announcer/model"
)

// NotificationService defines an optional interface for hearing about
// announcer events: rule list changes and failed deliveries.
//
// Implementations might page an operator, audit preference changes or
// feed a monitoring system. Errors returned are logged and otherwise ignored.
type NotificationService interface {
	// NotifyRuleAdded is called after a rule was appended to its group.
	NotifyRuleAdded(ctx context.Context, rule model.Rule) error

	// NotifyRuleDeleted is called after a rule was removed and its group renumbered.
	NotifyRuleDeleted(ctx context.Context, rule model.Rule) error

	// NotifyRuleMoved is called after a rule changed its priority.
	NotifyRuleMoved(ctx context.Context, rule model.Rule, from, to int) error

	// NotifyDeliveryFailure is called when an accepted announcement could
	// not be produced or handed to its distributor.
	NotifyDeliveryFailure(ctx context.Context, event model.Event, result Result) error
}

// NoOpNotificationService is a no-op implementation of NotificationService.
type NoOpNotificationService struct{}

// NotifyRuleAdded does nothing.
func (n *NoOpNotificationService) NotifyRuleAdded(_ context.Context, _ model.Rule) error {
	return nil
}

// NotifyRuleDeleted does nothing.
func (n *NoOpNotificationService) NotifyRuleDeleted(_ context.Context, _ model.Rule) error {
	return nil
}

// NotifyRuleMoved does nothing.
func (n *NoOpNotificationService) NotifyRuleMoved(_ context.Context, _ model.Rule, _, _ int) error {
	return nil
}

// NotifyDeliveryFailure does nothing.
func (n *NoOpNotificationService) NotifyDeliveryFailure(_ context.Context, _ model.Event, _ Result) error {
	return nil
}

// LoggingNotificationService logs every notification.
type LoggingNotificationService struct {
	logger Logger
}

// NewLoggingNotificationService creates a new LoggingNotificationService.
func NewLoggingNotificationService(logger Logger) *LoggingNotificationService {
	return &LoggingNotificationService{logger: logger}
}

// NotifyRuleAdded logs the new rule.
func (n *LoggingNotificationService) NotifyRuleAdded(_ context.Context, rule model.Rule) error {
	n.logger.Infof("Rule added: id=%d, group=%s, priority=%d, adverb=%s, class=%s",
		rule.ID, rule.Group(), rule.Priority, rule.Adverb, rule.Class)
	return nil
}

// NotifyRuleDeleted logs the removed rule.
func (n *LoggingNotificationService) NotifyRuleDeleted(_ context.Context, rule model.Rule) error {
	n.logger.Infof("Rule deleted: id=%d, group=%s, class=%s", rule.ID, rule.Group(), rule.Class)
	return nil
}

// NotifyRuleMoved logs the priority change.
func (n *LoggingNotificationService) NotifyRuleMoved(_ context.Context, rule model.Rule, from, to int) error {
	n.logger.Infof("Rule moved: id=%d, group=%s, from=%d, to=%d", rule.ID, rule.Group(), from, to)
	return nil
}

// NotifyDeliveryFailure logs the failed delivery.
func (n *LoggingNotificationService) NotifyDeliveryFailure(_ context.Context, event model.Event, result Result) error {
	n.logger.Warnf("Delivery failed: realm=%s, category=%s, subscriber=%s, distributor=%s, error=%v",
		event.Realm(), event.Category(), result.Subscriber, result.Distributor, result.Err)
	return nil
}
