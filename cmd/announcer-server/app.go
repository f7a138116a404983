package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/adapters/relica"
	"github.com/coregx/announcer/cmd/announcer-server/internal/api"
	"github.com/coregx/announcer/cmd/announcer-server/internal/config"
	"github.com/coregx/announcer/matchers"
	"github.com/coregx/announcer/metrics"
	"github.com/coregx/announcer/model"
)

// app is the wired announcer server.
type app struct {
	announcer *announcer.Announcer
	rules     *announcer.RuleManager
	watches   *matchers.WatchMatcher
	handler   http.Handler
}

// newApp wires repositories, matchers, resolvers and distributors from the
// configuration and builds the HTTP handler.
func newApp(cfg *config.Config, db *sql.DB, logger announcer.Logger) (*app, error) {
	var repos *relica.Repositories
	if cfg.Database.Prefix != "" {
		repos = relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repos = relica.NewRepositories(db, cfg.Database.Driver)
	}

	watches, err := matchers.NewWatchMatcher(repos.Attribute, matchers.WithWatchLogger(logger))
	if err != nil {
		return nil, err
	}
	expressions, err := matchers.NewExpressionMatcher(repos.Attribute)
	if err != nil {
		return nil, err
	}
	ruleMatchers := []announcer.RuleMatcher{
		matchers.NewOwnerMatcher(),
		matchers.NewReporterMatcher(),
		matchers.NewUpdaterMatcher(),
		matchers.NewAllTicketsMatcher("all_tickets"),
		matchers.NewAllMatcher(),
		watches,
		expressions,
	}
	registry, err := announcer.NewMatcherRegistry(ruleMatchers...)
	if err != nil {
		return nil, err
	}

	resolvers := []announcer.AddressResolver{
		announcer.NewSpecifiedAddressResolver(repos.Session, model.SessionSpecifiedEmail),
		announcer.NewSessionEmailResolver(repos.Session),
	}
	if cfg.Announcer.DefaultDomain != "" {
		resolvers = append(resolvers, announcer.DefaultDomainResolver{Domain: cfg.Announcer.DefaultDomain})
	}

	adverb, err := model.ParseAdverb(cfg.Announcer.DefaultAdverb)
	if err != nil {
		return nil, err
	}

	var notifications announcer.NotificationService = &announcer.NoOpNotificationService{}
	if cfg.Announcer.Notifications {
		notifications = announcer.NewLoggingNotificationService(logger)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := []announcer.Option{
		announcer.WithRuleRepository(repos.Rule),
		announcer.WithMatchers(ruleMatchers...),
		announcer.WithFormatters(announcer.NewTicketFormatter(), announcer.NewWikiFormatter()),
		announcer.WithLogger(logger),
		announcer.WithProject(announcer.Project{Name: cfg.Announcer.ProjectName, URL: cfg.Announcer.ProjectURL}),
		announcer.WithDefaultAdverb(adverb),
		announcer.WithMetrics(recorder),
		announcer.WithNotifications(notifications),
	}
	for _, name := range cfg.Announcer.Distributors {
		distributor := announcer.NewRetryDistributor(announcer.NewLogDistributor(name, logger), cfg.Announcer.RetryStrategy(), logger)
		opts = append(opts, announcer.WithDistributor(distributor, resolvers...))
	}
	if cfg.Announcer.IgnoreAuthor {
		opts = append(opts, announcer.WithFilters(announcer.AuthorFilter{}))
	}
	a, err := announcer.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create announcer: %w", err)
	}

	rules, err := announcer.NewRuleManager(
		announcer.WithRuleManagerRepository(repos.Rule),
		announcer.WithRuleManagerLogger(logger),
		announcer.WithRuleManagerMatchers(registry),
		announcer.WithRuleManagerNotifications(notifications),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule manager: %w", err)
	}

	producerOpts := []announcer.ProducerOption{
		announcer.WithDeletionListeners(watches),
		announcer.WithProducerLogger(logger),
	}
	if cfg.Announcer.IgnoreCCChanges {
		producerOpts = append(producerOpts, announcer.WithIgnoreCCChanges())
	}
	tickets, err := announcer.NewTicketProducer(a, producerOpts...)
	if err != nil {
		return nil, err
	}
	wiki, err := announcer.NewWikiProducer(a, producerOpts...)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	api.NewHandler(rules, watches, tickets, wiki, logger).Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &app{
		announcer: a,
		rules:     rules,
		watches:   watches,
		handler:   loggingMiddleware(mux, logger),
	}, nil
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger announcer.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("Request served: method=%s, path=%s, elapsed=%v", r.Method, r.URL.Path, time.Since(start))
	})
}
