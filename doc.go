// Package announcer is a rule-driven notification dispatcher for issue
// trackers and wikis.
//
// The host application raises events (a ticket changed, a wiki page was
// added) through a producer. The Announcer finds the subscribers whose
// ordered rule lists accept the event, resolves a delivery address for each
// of them, renders the announcement once per content style and hands it to
// the configured distributors.
//
// # Rules
//
// Every subscriber keeps one rule list per distributor. A rule names a
// class (ticket_owner, watch, expression, ...) and an adverb, accept or
// deny. Rules are evaluated in ascending priority and the first rule whose
// class matches the event decides; when none matches the configured default
// adverb applies (deny unless changed with WithDefaultAdverb). Priorities
// in a list are always 1..N; RuleManager keeps them that way when rules are
// added, deleted or moved.
//
// Rule classes are implemented by RuleMatcher values registered once at
// startup. Package matchers ships role, watch, catch-all and CEL expression
// matchers. A matcher that also implements CandidateFinder narrows down
// which subscribers' rules are loaded for an event.
//
// # Quick Start
//
//	db, _ := sql.Open("sqlite3", "announcer.db")
//	_ = migrator.Up(db, "sqlite3")
//
//	repos := relica.NewRepositories(db, "sqlite3")
//	watch, _ := matchers.NewWatchMatcher(repos.Attribute)
//	logger, _ := zaplog.New("info")
//
//	a, err := announcer.New(
//	    announcer.WithRuleRepository(repos.Rule),
//	    announcer.WithMatchers(matchers.NewOwnerMatcher(), watch),
//	    announcer.WithFormatters(announcer.NewTicketFormatter(), announcer.NewWikiFormatter()),
//	    announcer.WithDistributor(mailer,
//	        announcer.NewSessionEmailResolver(repos.Session),
//	        announcer.DefaultDomainResolver{Domain: "example.org"},
//	    ),
//	    announcer.WithLogger(logger),
//	)
//
//	tickets, _ := announcer.NewTicketProducer(a, announcer.WithDeletionListeners(watch))
//	report, err := tickets.TicketChanged(ctx, ticket, "bob", "Fixed in r12.", oldValues)
//
// # Dispatch
//
// Send never fails because of a single subscriber. Store, matcher,
// formatter and transport errors are recorded per (subscriber, distributor)
// pair in the returned Report, logged, and passed to the NotificationService.
// A render failure degrades the content to Data.Raw instead of dropping it.
//
// # Storage
//
// Rules, watch attributes and session preferences live in three tables
// (subscription, subscription_attribute, session_attribute); a fourth,
// subscription_lock, serialises changes to a rule list across processes.
// The schema is embedded in MigrationFiles and applied by the migrator
// package. Relica backed repositories for SQLite, PostgreSQL and MySQL are in
// adapters/relica; adapters/memory has in-memory versions for tests and
// embedding.
//
// # Standalone Service
//
// cmd/announcer-server exposes rule management, watch toggling and event
// submission over HTTP, with Prometheus metrics on /metrics.
package announcer
