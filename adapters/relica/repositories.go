package relica

import (
	"database/sql"

	"github.com/coregx/announcer"
)

// Repositories holds all repository implementations.
type Repositories struct {
	Rule      announcer.RuleRepository
	Attribute announcer.AttributeRepository
	Session   *SessionRepository
}

// NewRepositories creates all repository implementations using Relica.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or SQLite.
// The driverName should be "mysql", "postgres", or "sqlite3".
// Tables are unprefixed, matching the host application's schema.
func NewRepositories(db *sql.DB, driverName string) *Repositories {
	return NewRepositoriesWithPrefix(db, driverName, "")
}

// NewRepositoriesWithPrefix creates all repository implementations with a custom table prefix.
func NewRepositoriesWithPrefix(db *sql.DB, driverName, prefix string) *Repositories {
	return &Repositories{
		Rule:      NewRuleRepositoryWithPrefix(db, driverName, prefix),
		Attribute: NewAttributeRepositoryWithPrefix(db, driverName, prefix),
		Session:   NewSessionRepositoryWithPrefix(db, driverName, prefix),
	}
}
