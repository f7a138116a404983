// Package matchers provides reference rule class matchers for the announcer.
//
// Matchers decide whether a subscriber's rule of their class applies to an
// event. The dispatcher looks them up by class, so each matcher must be
// registered once:
//
//	a, err := announcer.New(
//	    announcer.WithMatchers(
//	        matchers.NewOwnerMatcher(),
//	        matchers.NewReporterMatcher(),
//	        matchers.NewUpdaterMatcher(),
//	        matchers.NewAllMatcher(matchers.WithRealms(model.RealmTicket)),
//	        watch,
//	    ),
//	    ...
//	)
//
// RoleMatcher and WatchMatcher also implement announcer.CandidateFinder, so
// the dispatcher only loads the rules of subscribers an event can concern.
// WatchMatcher keeps its state in subscription attributes and forgets
// watches on deleted resources when registered as a deletion listener.
// ExpressionMatcher evaluates subscriber supplied CEL expressions.
package matchers
