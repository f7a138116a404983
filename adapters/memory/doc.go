// Package memory provides mutex-guarded in-memory implementations of the
// announcer storage interfaces. They follow the same ordering rules as the
// SQL repositories and suit embedding, demos and tests.
package memory
