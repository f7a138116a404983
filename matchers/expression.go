package matchers

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
)

// expressionRealm is the attribute realm expressions are stored under;
// an expression applies to events of every realm.
const expressionRealm = "*"

// ExpressionMatcher matches events against CEL expressions a subscriber
// stored as attributes of the matcher's class. A rule matches when any of
// the subscriber's expressions evaluates to true.
//
// Expressions see these variables:
//
//	realm, category, target, author, comment  string
//	fields, changes                            map(string, string)
//	terms, roles                               list(string)
//	subscriber                                 string
//	authenticated                              bool
//
// fields holds the current ticket fields (empty for other realms), changes
// the previous values of changed fields, terms the event's basic terms and
// roles the subscriber's session terms. For example:
//
//	realm == "ticket" && fields["priority"] == "blocker" && !("updater" in roles)
type ExpressionMatcher struct {
	attrs announcer.AttributeRepository
	class string
	env   *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewExpressionMatcher creates an ExpressionMatcher reading expressions
// from attrs.
func NewExpressionMatcher(attrs announcer.AttributeRepository) (*ExpressionMatcher, error) {
	if attrs == nil {
		return nil, announcer.NewError(announcer.ErrCodeConfiguration, "AttributeRepository is required")
	}
	env, err := cel.NewEnv(
		cel.Variable("realm", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("target", cel.StringType),
		cel.Variable("author", cel.StringType),
		cel.Variable("comment", cel.StringType),
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("changes", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("terms", cel.ListType(cel.StringType)),
		cel.Variable("roles", cel.ListType(cel.StringType)),
		cel.Variable("subscriber", cel.StringType),
		cel.Variable("authenticated", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &ExpressionMatcher{
		attrs:    attrs,
		class:    ClassExpression,
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Class returns the rule class.
func (m *ExpressionMatcher) Class() string { return m.class }

// Validate checks that the expression compiles and yields a bool.
func (m *ExpressionMatcher) Validate(expression string) error {
	_, err := m.compile(expression)
	return err
}

// AddExpression validates and stores an expression for the subscriber.
func (m *ExpressionMatcher) AddExpression(ctx context.Context, subscriber model.Identity, expression string) error {
	if subscriber.IsZero() {
		return announcer.NewError(announcer.ErrCodeValidation, "subscriber is required")
	}
	if err := m.Validate(expression); err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeValidation, "invalid expression", err)
	}
	if _, err := m.attrs.Add(ctx, subscriber, m.class, expressionRealm, expression); err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to store expression", err)
	}
	return nil
}

// RemoveExpression drops a stored expression of the subscriber.
func (m *ExpressionMatcher) RemoveExpression(ctx context.Context, subscriber model.Identity, expression string) error {
	if err := m.attrs.DeleteBySubscriberClassAndTarget(ctx, subscriber, m.class, expression); err != nil {
		return announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to remove expression", err)
	}
	return nil
}

// Expressions returns the subscriber's stored expressions.
func (m *ExpressionMatcher) Expressions(ctx context.Context, subscriber model.Identity) ([]string, error) {
	attrs, err := m.attrs.FindBySubscriberAndClass(ctx, subscriber, m.class)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to load expressions", err)
	}
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, a.Target)
	}
	return out, nil
}

// Matches evaluates the subscriber's expressions in turn and stops at the
// first one that holds. An expression that fails to compile or evaluate
// fails the match.
func (m *ExpressionMatcher) Matches(ctx context.Context, event model.Event, rule model.Rule) (bool, error) {
	expressions, err := m.Expressions(ctx, rule.Subscriber())
	if err != nil {
		return false, err
	}
	if len(expressions) == 0 {
		return false, nil
	}

	vars := variables(event, rule.Subscriber())
	for _, expression := range expressions {
		program, err := m.program(expression)
		if err != nil {
			return false, err
		}
		result, _, err := program.ContextEval(ctx, vars)
		if err != nil {
			return false, fmt.Errorf("failed to evaluate CEL expression %q: %w", expression, err)
		}
		matched, ok := result.Value().(bool)
		if !ok {
			return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (m *ExpressionMatcher) program(expression string) (cel.Program, error) {
	m.mu.RLock()
	program, ok := m.programs[expression]
	m.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := m.compile(expression)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.programs[expression] = program
	m.mu.Unlock()
	return program, nil
}

func (m *ExpressionMatcher) compile(expression string) (cel.Program, error) {
	ast, issues := m.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %v", ast.OutputType())
	}
	program, err := m.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program, nil
}

func variables(event model.Event, subscriber model.Identity) map[string]interface{} {
	fields := map[string]string{}
	if fielded, ok := event.Target().(model.FieldedResource); ok {
		for _, name := range fielded.FieldNames() {
			fields[name] = fielded.Field(name)
		}
	}
	target := ""
	if event.Target() != nil {
		target = event.Target().ResourceID()
	}
	return map[string]interface{}{
		"realm":         event.Realm(),
		"category":      event.Category(),
		"target":        target,
		"author":        event.Author(),
		"comment":       event.Comment(),
		"fields":        fields,
		"changes":       event.Changes(),
		"terms":         nonNil(slices.Collect(event.BasicTerms())),
		"roles":         nonNil(slices.Collect(event.SessionTerms(subscriber))),
		"subscriber":    subscriber.SID,
		"authenticated": subscriber.Authenticated,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
