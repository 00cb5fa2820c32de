package store

import (
	"time"

	"github.com/alexedwards/scs/sqlite3store"
)

// SessionStore returns an scs store backed by the sessions table. Expired
// rows are removed every cleanup interval; call StopCleanup on the result
// before closing the Store.
func (s *Store) SessionStore(cleanup time.Duration) *sqlite3store.SQLite3Store {
	return sqlite3store.NewWithCleanupInterval(s.db, cleanup)
}
