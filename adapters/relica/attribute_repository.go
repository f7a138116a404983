package relica

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
	"github.com/coregx/relica"
)

// AttributeRepository implements announcer.AttributeRepository using Relica.
type AttributeRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewAttributeRepository creates a new AttributeRepository without table prefix.
func NewAttributeRepository(sqlDB *sql.DB, driverName string) *AttributeRepository {
	return &AttributeRepository{db: relica.WrapDB(sqlDB, driverName)}
}

// NewAttributeRepositoryWithPrefix creates a new AttributeRepository with custom table prefix.
func NewAttributeRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *AttributeRepository {
	return &AttributeRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *AttributeRepository) tableName() string {
	return r.tablePrefix + model.Attribute{}.TableName()
}

// Add stores one attribute per target. Either every target is stored or none is.
func (r *AttributeRepository) Add(ctx context.Context, subscriber model.Identity, class, realm string, targets ...string) ([]model.Attribute, error) {
	out := make([]model.Attribute, 0, len(targets))
	err := withTx(ctx, r.db, "insert attributes", func(tx *relica.Tx) error {
		for _, target := range targets {
			a := model.NewAttribute(subscriber, class, realm, target)
			if err := tx.Model(&a).Table(r.tableName()).Insert(); err != nil {
				return fmt.Errorf("insert %s: %w", target, err)
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a single attribute.
func (r *AttributeRepository) Delete(ctx context.Context, id int64) error {
	return inTx(ctx, r.db, "delete attribute", func(b *relica.QueryBuilder) error {
		_, err := b.Delete(r.tableName()).Where("id = ?", id).Execute()
		return err
	})
}

// DeleteBySubscriberAndClass removes a subscriber's attributes for a class.
func (r *AttributeRepository) DeleteBySubscriberAndClass(ctx context.Context, subscriber model.Identity, class string) error {
	return inTx(ctx, r.db, "delete attributes by subscriber and class", func(b *relica.QueryBuilder) error {
		_, err := b.Delete(r.tableName()).
			Where("sid = ?", subscriber.SID).
			Where("authenticated = ?", subscriber.Authenticated).
			Where("class = ?", class).
			Execute()
		return err
	})
}

// DeleteBySubscriberClassAndTarget removes a subscriber's attributes for a class and target.
func (r *AttributeRepository) DeleteBySubscriberClassAndTarget(ctx context.Context, subscriber model.Identity, class, target string) error {
	return inTx(ctx, r.db, "delete attributes by subscriber, class and target", func(b *relica.QueryBuilder) error {
		_, err := b.Delete(r.tableName()).
			Where("sid = ?", subscriber.SID).
			Where("authenticated = ?", subscriber.Authenticated).
			Where("class = ?", class).
			Where("target = ?", target).
			Execute()
		return err
	})
}

// DeleteByClassRealmAndTarget removes every subscriber's attributes for a class, realm and target.
func (r *AttributeRepository) DeleteByClassRealmAndTarget(ctx context.Context, class, realm, target string) error {
	return inTx(ctx, r.db, "delete attributes by class, realm and target", func(b *relica.QueryBuilder) error {
		_, err := b.Delete(r.tableName()).
			Where("class = ?", class).
			Where("realm = ?", realm).
			Where("target = ?", target).
			Execute()
		return err
	})
}

// FindBySubscriberAndClass returns a subscriber's attributes for a class, ordered by target.
func (r *AttributeRepository) FindBySubscriberAndClass(ctx context.Context, subscriber model.Identity, class string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("sid = ?", subscriber.SID).
		Where("authenticated = ?", subscriber.Authenticated).
		Where("class = ?", class).
		OrderBy("target ASC").
		WithContext(ctx).
		All(&attrs)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find attributes", err)
	}
	return attrs, nil
}

// FindBySubscriberClassAndTarget returns a subscriber's attributes for a class and target.
func (r *AttributeRepository) FindBySubscriberClassAndTarget(ctx context.Context, subscriber model.Identity, class, target string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("sid = ?", subscriber.SID).
		Where("authenticated = ?", subscriber.Authenticated).
		Where("class = ?", class).
		Where("target = ?", target).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&attrs)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find attributes", err)
	}
	return attrs, nil
}

// FindBySubscriberClassRealmAndTarget returns a subscriber's attributes for a class, realm and target.
func (r *AttributeRepository) FindBySubscriberClassRealmAndTarget(ctx context.Context, subscriber model.Identity, class, realm, target string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("sid = ?", subscriber.SID).
		Where("authenticated = ?", subscriber.Authenticated).
		Where("class = ?", class).
		Where("realm = ?", realm).
		Where("target = ?", target).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&attrs)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find attributes", err)
	}
	return attrs, nil
}

// FindByClassRealmAndTarget returns every subscriber's attributes for a class, realm and target.
func (r *AttributeRepository) FindByClassRealmAndTarget(ctx context.Context, class, realm, target string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("class = ?", class).
		Where("realm = ?", realm).
		Where("target = ?", target).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&attrs)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find attributes", err)
	}
	return attrs, nil
}

// FindByClassAndRealm returns every subscriber's attributes for a class and realm.
func (r *AttributeRepository) FindByClassAndRealm(ctx context.Context, class, realm string) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("class = ?", class).
		Where("realm = ?", realm).
		OrderBy("id ASC").
		WithContext(ctx).
		All(&attrs)
	if err != nil {
		return nil, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to find attributes", err)
	}
	return attrs, nil
}
