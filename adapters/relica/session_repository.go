package relica

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/model"
	"github.com/coregx/relica"
)

// SessionRepository implements announcer.SessionRepository over the host's
// session_attribute table.
type SessionRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSessionRepository creates a new SessionRepository without table prefix.
func NewSessionRepository(sqlDB *sql.DB, driverName string) *SessionRepository {
	return &SessionRepository{db: relica.WrapDB(sqlDB, driverName)}
}

// NewSessionRepositoryWithPrefix creates a new SessionRepository with custom table prefix.
func NewSessionRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SessionRepository {
	return &SessionRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *SessionRepository) tableName() string {
	return r.tablePrefix + model.SessionAttribute{}.TableName()
}

// Get returns the named preference of the session.
func (r *SessionRepository) Get(ctx context.Context, subscriber model.Identity, name string) (string, bool, error) {
	var attr model.SessionAttribute
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("sid = ?", subscriber.SID).
		Where("authenticated = ?", subscriber.Authenticated).
		Where("name = ?", name).
		WithContext(ctx).
		One(&attr)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, announcer.NewErrorWithCause(announcer.ErrCodeDatabase, "failed to load session attribute", err)
	}
	return attr.Value, strings.TrimSpace(attr.Value) != "", nil
}

// Set stores a preference, replacing any previous value.
func (r *SessionRepository) Set(ctx context.Context, subscriber model.Identity, name, value string) error {
	return inTx(ctx, r.db, "set session attribute", func(b *relica.QueryBuilder) error {
		_, err := b.Delete(r.tableName()).
			Where("sid = ?", subscriber.SID).
			Where("authenticated = ?", subscriber.Authenticated).
			Where("name = ?", name).
			Execute()
		if err != nil {
			return err
		}
		_, err = b.Insert(r.tableName(), map[string]interface{}{
			"sid":           subscriber.SID,
			"authenticated": subscriber.Authenticated,
			"name":          name,
			"value":         value,
		}).Execute()
		return err
	})
}
