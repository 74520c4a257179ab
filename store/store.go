// Package store is the SQLite-backed name index. It answers the three kinds
// of name lookups the resolver issues: unfiltered snapshots, substring
// searches and regular-expression queries executed by the database.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/hayeah/runlens/fzf"
	"github.com/hayeah/runlens/internal/safety"
	"github.com/hayeah/runlens/names"
)

var (
	ErrUnsafePattern  = errors.New("unsafe regex pattern")
	ErrInvalidPattern = errors.New("invalid regex pattern")
)

// Record is one indexed name for one run.
type Record struct {
	RunID   string        `json:"runId" db:"run_id"`
	Kind    names.Kind    `json:"kind" db:"kind"`
	Name    string        `json:"name" db:"name"`
	LogType names.LogType `json:"logType,omitempty" db:"log_type"`
}

// Store indexes names per project and run.
type Store struct {
	DB      *sqlx.DB
	Logger  *slog.Logger
	Project string
}

var _ names.Source = (*Store)(nil)

// New returns a Store for project on db.
func New(db *sqlx.DB, project string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{DB: db, Logger: logger, Project: project}
}

// Migration is a named schema change applied at most once.
type Migration struct {
	Name string
	Up   string
}

var migrations = []Migration{
	{
		Name: "create_names_table",
		Up: `
			CREATE TABLE IF NOT EXISTS names (
				project   TEXT NOT NULL,
				run_id    TEXT NOT NULL,
				kind      TEXT NOT NULL,
				name      TEXT NOT NULL,
				log_type  TEXT NOT NULL DEFAULT '',
				log_group TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (project, run_id, kind, name)
			);
		`,
	},
	{
		Name: "create_names_lookup_index",
		Up:   `CREATE INDEX IF NOT EXISTS names_by_kind ON names (project, kind, name);`,
	},
}

// Migrate applies pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		var n int
		if err := s.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM migrations WHERE name = ?", m.Name); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.Name, err)
		}
		if n > 0 {
			continue
		}
		tx, err := s.DB.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to run migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO migrations (name) VALUES (?)", m.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.Logger.Debug("applied migration", "name", m.Name)
	}
	return nil
}

type indexRow struct {
	Project  string `db:"project"`
	LogGroup string `db:"log_group"`
	Record
}

// Index upserts recs. Re-indexing an existing name updates its log type.
func (s *Store) Index(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]indexRow, 0, len(recs))
	for i, r := range recs {
		if r.RunID == "" || r.Name == "" {
			return fmt.Errorf("record %d: run id and name are required", i)
		}
		if _, err := names.ParseKind(string(r.Kind)); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if r.Kind == names.KindMetric {
			r.LogType = ""
		}
		rows = append(rows, indexRow{Project: s.Project, LogGroup: names.GroupOf(r.Name), Record: r})
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO names (project, run_id, kind, name, log_type, log_group)
		VALUES (:project, :run_id, :kind, :name, :log_type, :log_group)
		ON CONFLICT (project, run_id, kind, name)
		DO UPDATE SET log_type = excluded.log_type, log_group = excluded.log_group
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare index statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to index %s/%s: %w", row.RunID, row.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	s.Logger.Debug("indexed names", "project", s.Project, "count", len(rows))
	return nil
}

// FetchNames implements names.Source. Results are ordered by kind, then name.
// An empty run list matches nothing.
func (s *Store) FetchNames(ctx context.Context, q names.Query) ([]names.Name, error) {
	if len(q.RunIDs) == 0 {
		return nil, nil
	}

	var (
		where strings.Builder
		args  []any
	)
	where.WriteString("project = ? AND run_id IN (?)")
	args = append(args, s.Project, q.RunIDs)
	if q.Kind != "" {
		where.WriteString(" AND kind = ?")
		args = append(args, q.Kind)
	}
	if q.Regex != "" {
		if err := ValidateRegex(q.Regex); err != nil {
			return nil, err
		}
		where.WriteString(" AND name REGEXP ?")
		args = append(args, q.Regex)
	}

	query, args, err := sqlx.In(`
		SELECT name, kind, MAX(log_type) AS log_type
		FROM names
		WHERE `+where.String()+`
		GROUP BY kind, name
		ORDER BY kind, name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build name query: %w", err)
	}

	var out []names.Name
	if err := s.DB.SelectContext(ctx, &out, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch names: %w", err)
	}

	if q.Search != "" {
		out = filterSearch(out, q.Search)
	}
	return out, nil
}

// Groups lists the distinct log groups of the names matching q, sorted.
func (s *Store) Groups(ctx context.Context, q names.Query) ([]string, error) {
	ns, err := s.FetchNames(ctx, q)
	if err != nil {
		return nil, err
	}
	seen := names.NewSet()
	for _, n := range ns {
		seen.Put(names.Name{Name: names.GroupOf(n.Name)})
	}
	groups := seen.Keys()
	sort.Strings(groups)
	return groups, nil
}

// Runs lists the run IDs known for the project.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	var runs []string
	err := s.DB.SelectContext(ctx, &runs, "SELECT DISTINCT run_id FROM names WHERE project = ? ORDER BY run_id", s.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ValidateRegex returns ErrUnsafePattern or ErrInvalidPattern when pattern
// must not be executed.
func ValidateRegex(pattern string) error {
	if err := safety.Check(pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafePattern, err)
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

// filterSearch applies the multi-term matcher. A query the matcher cannot
// parse (a lone "!" or quote) is matched as a plain substring instead.
func filterSearch(ns []names.Name, search string) []names.Name {
	m, err := fzf.NewMatcher(search)
	match := m.Match
	if err != nil {
		needle := strings.ToLower(search)
		match = func(name string) bool { return strings.Contains(strings.ToLower(name), needle) }
	}
	out := ns[:0]
	for _, n := range ns {
		if match(n.Name) {
			out = append(out, n)
		}
	}
	return out
}
