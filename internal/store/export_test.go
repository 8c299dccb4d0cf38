package store

import "database/sql"

// DB exposes the raw connection so tests can inject storage faults.
func (s *Store) DB() *sql.DB {
	return s.db
}
