package announcer

import (
	"fmt"

	"github.com/coregx/announcer/model"
)

// Option is a function that configures an Announcer.
//
// Example:
//
//	a, err := announcer.New(
//	    announcer.WithRuleRepository(rules),
//	    announcer.WithMatchers(matchers.NewAllMatcher()),
//	    announcer.WithFormatters(announcer.NewTicketFormatter()),
//	    announcer.WithDistributor(mailer, announcer.DefaultDomainResolver{Domain: "example.org"}),
//	    announcer.WithLogger(logger),
//	)
type Option func(*Announcer) error

// WithRuleRepository sets the rule store. Required.
func WithRuleRepository(rules RuleRepository) Option {
	return func(a *Announcer) error {
		if rules == nil {
			return fmt.Errorf("rule repository cannot be nil")
		}
		a.rules = rules
		return nil
	}
}

// WithMatchers registers the rule class matchers. Required; a class may
// only be registered once.
func WithMatchers(matchers ...RuleMatcher) Option {
	return func(a *Announcer) error {
		registry, err := NewMatcherRegistry(matchers...)
		if err != nil {
			return err
		}
		a.matchers = registry
		return nil
	}
}

// WithFormatters registers the realm formatters. Required; one formatter
// per realm.
func WithFormatters(formatters ...Formatter) Option {
	return func(a *Announcer) error {
		registry, err := NewFormatterRegistry(formatters...)
		if err != nil {
			return err
		}
		a.formatters = registry
		return nil
	}
}

// WithRenderer replaces the default template renderer.
func WithRenderer(renderer Renderer) Option {
	return func(a *Announcer) error {
		if renderer == nil {
			return fmt.Errorf("renderer cannot be nil")
		}
		a.renderer = renderer
		return nil
	}
}

// WithDistributor registers a delivery channel together with the resolver
// chain that finds addresses for it. At least one distributor is required.
// Resolvers are consulted in the given order.
func WithDistributor(distributor Distributor, resolvers ...AddressResolver) Option {
	return func(a *Announcer) error {
		if distributor == nil {
			return fmt.Errorf("distributor cannot be nil")
		}
		name := distributor.Name()
		if name == "" {
			return fmt.Errorf("distributor %T has an empty name", distributor)
		}
		if _, dup := a.distributors[name]; dup {
			return fmt.Errorf("duplicate distributor %q", name)
		}
		if len(resolvers) == 0 {
			return fmt.Errorf("distributor %q needs at least one address resolver", name)
		}
		a.distributors[name] = &channel{distributor: distributor, resolvers: resolvers}
		return nil
	}
}

// WithFilters appends subscription filters.
func WithFilters(filters ...SubscriptionFilter) Option {
	return func(a *Announcer) error {
		for _, f := range filters {
			if f == nil {
				return fmt.Errorf("filter cannot be nil")
			}
		}
		a.filters = append(a.filters, filters...)
		return nil
	}
}

// WithLogger sets the logger. Required.
//
// Use NoopLogger for silent operation or adapters/zaplog for zap.
func WithLogger(logger Logger) Option {
	return func(a *Announcer) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		a.logger = logger
		return nil
	}
}

// WithProject sets the project announcements originate from. Its URL is
// used for permalinks and message ids.
func WithProject(project Project) Option {
	return func(a *Announcer) error {
		a.project = project
		return nil
	}
}

// WithDefaultAdverb sets the outcome for subscribers none of whose rules
// matched. Default: deny.
func WithDefaultAdverb(adverb model.Adverb) Option {
	return func(a *Announcer) error {
		if !adverb.Valid() {
			return fmt.Errorf("invalid default adverb %q", adverb)
		}
		a.defaultAdverb = adverb
		return nil
	}
}

// WithMetrics sets the metrics recorder. Default: no metrics.
func WithMetrics(metrics Metrics) Option {
	return func(a *Announcer) error {
		if metrics == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		a.metrics = metrics
		return nil
	}
}

// WithNotifications sets the service told about failed deliveries.
// Default: NoOpNotificationService.
func WithNotifications(service NotificationService) Option {
	return func(a *Announcer) error {
		if service == nil {
			return fmt.Errorf("notification service cannot be nil")
		}
		a.notifications = service
		return nil
	}
}
