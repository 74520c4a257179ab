package store

import (
	"database/sql"
	"fmt"
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/hayeah/runlens/internal/safety"
)

// DriverName is the go-sqlite3 driver with a REGEXP function installed on
// every connection.
const DriverName = "sqlite3_runlens"

var compiled, _ = lru.New[string, *regexp.Regexp](128)

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch backs `value REGEXP pattern`. SQLite calls it as
// regexp(pattern, value).
func regexpMatch(pattern, value string) (bool, error) {
	re, ok := compiled.Get(pattern)
	if !ok {
		if err := safety.Check(pattern); err != nil {
			return false, err
		}
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return false, err
		}
		compiled.Add(pattern, re)
	}
	return re.MatchString(value), nil
}

// Open opens the SQLite database at path. ":memory:" is accepted for tests;
// an in-memory database is limited to one connection so every statement sees
// the same data.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open name index %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping name index %s: %w", path, err)
	}
	return db, nil
}
