package relica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
	"github.com/coregx/relica"
)

// groupLockTable holds one row per rule group. Mutations upsert the row
// before reading the group, which serialises them across processes.
const groupLockTable = "subscription_lock"

// RuleRepository implements announcer.RuleRepository using Relica.
//
// Every mutation runs in one transaction that first takes the database lock
// of the rule's (subscriber, distributor) group and holds it until commit.
type RuleRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewRuleRepository creates a new RuleRepository without table prefix.
func NewRuleRepository(sqlDB *sql.DB, driverName string) *RuleRepository {
	return NewRuleRepositoryWithPrefix(sqlDB, driverName, "")
}

// NewRuleRepositoryWithPrefix creates a new RuleRepository with custom table prefix.
func NewRuleRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *RuleRepository {
	return &RuleRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *RuleRepository) tableName() string {
	return r.tablePrefix + model.Rule{}.TableName()
}

func (r *RuleRepository) lockTableName() string {
	return r.tablePrefix + groupLockTable
}

// Add appends the rule to its group with priority N+1.
func (r *RuleRepository) Add(ctx context.Context, rule model.Rule) (model.Rule, error) {
	group := rule.Group()
	if rule.Time == 0 {
		rule.Time = time.Now().UnixMicro()
	}
	if rule.ChangeTime == 0 {
		rule.ChangeTime = rule.Time
	}

	var stored model.Rule
	err := inTx(ctx, r.db, "add rule", func(b *relica.QueryBuilder) error {
		if err := r.lockGroup(b, group); err != nil {
			return err
		}
		rules, err := r.group(b, group)
		if err != nil {
			return err
		}
		priority := model.NextPriority(rules)

		_, err = b.Insert(r.tableName(), map[string]interface{}{
			"time":          rule.Time,
			"changetime":    rule.ChangeTime,
			"sid":           rule.SID,
			"authenticated": rule.Authenticated,
			"distributor":   rule.Distributor,
			"format":        rule.Format,
			"priority":      priority,
			"adverb":        string(rule.Adverb),
			"class":         rule.Class,
		}).Execute()
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}

		// (sid, authenticated, distributor, priority) is unique while the
		// group is locked, and works on drivers without LastInsertId.
		return b.Select("*").
			From(r.tableName()).
			Where("sid = ?", group.Subscriber.SID).
			Where("authenticated = ?", group.Subscriber.Authenticated).
			Where("distributor = ?", group.Distributor).
			Where("priority = ?", priority).
			One(&stored)
	})
	if err != nil {
		return rule, err
	}
	return stored, nil
}

// Load retrieves a rule by ID.
func (r *RuleRepository) Load(ctx context.Context, id int64) (model.Rule, error) {
	var rule model.Rule
	err := r.db.WithContext(ctx).Select("*").From(r.tableName()).Where("id = ?", id).One(&rule)
	if errors.Is(err, sql.ErrNoRows) {
		return rule, announcer.ErrNotFound
	}
	if err != nil {
		return rule, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to load rule", err)
	}
	return rule, nil
}

// Delete removes a rule and closes the gap in its group.
func (r *RuleRepository) Delete(ctx context.Context, id int64) error {
	rule, err := r.Load(ctx, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.db, "delete rule", func(b *relica.QueryBuilder) error {
		if err := r.lockGroup(b, rule.Group()); err != nil {
			return err
		}
		res, err := b.Delete(r.tableName()).Where("id = ?", id).Execute()
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return announcer.ErrNotFound
		}
		rest, err := r.group(b, rule.Group())
		if err != nil {
			return err
		}
		return r.apply(b, model.Renumber(rest))
	})
}

// Move places a rule at priority, shifting the rules in between.
// Priorities outside 1..N leave the group untouched.
func (r *RuleRepository) Move(ctx context.Context, id int64, priority int) error {
	rule, err := r.Load(ctx, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.db, "move rule", func(b *relica.QueryBuilder) error {
		if err := r.lockGroup(b, rule.Group()); err != nil {
			return err
		}
		rules, err := r.group(b, rule.Group())
		if err != nil {
			return err
		}
		updates, ok := model.Rethread(rules, id, priority)
		if !ok {
			return nil
		}
		return r.apply(b, updates)
	})
}

// UpdateFormat sets the format of every rule of the subscriber for the distributor.
func (r *RuleRepository) UpdateFormat(ctx context.Context, distributor string, subscriber model.Identity, format string) error {
	return inTx(ctx, r.db, "update format", func(b *relica.QueryBuilder) error {
		_, err := b.Update(r.tableName()).
			Set(map[string]interface{}{"format": format, "changetime": time.Now().UnixMicro()}).
			Where("sid = ?", subscriber.SID).
			Where("authenticated = ?", subscriber.Authenticated).
			Where("distributor = ?", distributor).
			Execute()
		return err
	})
}

// FindBySubscriberAndDistributor returns the group in ascending priority.
func (r *RuleRepository) FindBySubscriberAndDistributor(ctx context.Context, subscriber model.Identity, distributor string) ([]model.Rule, error) {
	var rules []model.Rule
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("sid = ?", subscriber.SID).
		Where("authenticated = ?", subscriber.Authenticated).
		Where("distributor = ?", distributor).
		OrderBy("priority ASC").
		WithContext(ctx).
		All(&rules)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find rules", err)
	}
	return rules, nil
}

// FindBySubscribersAndClass returns the class's rules of any of the subscribers.
func (r *RuleRepository) FindBySubscribersAndClass(ctx context.Context, subscribers []model.Identity, class string) ([]model.Rule, error) {
	if len(subscribers) == 0 {
		return []model.Rule{}, nil
	}
	conds := make([]string, 0, len(subscribers))
	args := make([]interface{}, 0, 2*len(subscribers))
	for _, s := range subscribers {
		conds = append(conds, "(sid = ? AND authenticated = ?)")
		args = append(args, s.SID, s.Authenticated)
	}

	var rules []model.Rule
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("class = ?", class).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		OrderBy("sid ASC", "authenticated ASC", "distributor ASC", "priority ASC").
		WithContext(ctx).
		All(&rules)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find rules by subscribers", err)
	}
	return rules, nil
}

// FindByClass returns every rule of the class.
func (r *RuleRepository) FindByClass(ctx context.Context, class string) ([]model.Rule, error) {
	var rules []model.Rule
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("class = ?", class).
		OrderBy("sid ASC", "authenticated ASC", "distributor ASC", "priority ASC").
		WithContext(ctx).
		All(&rules)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find rules by class", err)
	}
	return rules, nil
}

// lockGroup upserts the group's lock row. The row lock is held until the
// transaction ends, so concurrent mutations of the group wait for it and
// then read what it committed.
func (r *RuleRepository) lockGroup(b *relica.QueryBuilder, group model.Group) error {
	_, err := b.Upsert(r.lockTableName(), map[string]interface{}{
		"sid":           group.Subscriber.SID,
		"authenticated": group.Subscriber.Authenticated,
		"distributor":   group.Distributor,
		"changetime":    time.Now().UnixMicro(),
	}).OnConflict("sid", "authenticated", "distributor").DoUpdate("changetime").Execute()
	if err != nil {
		return fmt.Errorf("lock group %s: %w", group, err)
	}
	return nil
}

// group reads a group inside the transaction.
func (r *RuleRepository) group(b *relica.QueryBuilder, group model.Group) ([]model.Rule, error) {
	var rules []model.Rule
	err := b.Select("*").
		From(r.tableName()).
		Where("sid = ?", group.Subscriber.SID).
		Where("authenticated = ?", group.Subscriber.Authenticated).
		Where("distributor = ?", group.Distributor).
		OrderBy("priority ASC").
		All(&rules)
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", group, err)
	}
	return rules, nil
}

// apply writes priority updates inside the transaction.
func (r *RuleRepository) apply(b *relica.QueryBuilder, updates []model.PriorityUpdate) error {
	now := time.Now().UnixMicro()
	for _, u := range updates {
		_, err := b.Update(r.tableName()).
			Set(map[string]interface{}{"priority": u.Priority, "changetime": now}).
			Where("id = ?", u.ID).
			Execute()
		if err != nil {
			return fmt.Errorf("renumber rule %d: %w", u.ID, err)
		}
	}
	return nil
}
