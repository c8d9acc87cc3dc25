package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/plantag/pkg/plantag/internalerr"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/store"
	"github.com/cognicore/plantag/pkg/plantag/token"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serialises writers from concurrent batch workers; the
	// busy timeout covers other processes holding the file.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist. ord columns keep
// declaration order, which the pattern registry relies on to break
// position ties.
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS codification (
	code TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	parent TEXT,
	ord INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS codification_children (
	code TEXT NOT NULL,
	child TEXT NOT NULL,
	ord INTEGER NOT NULL,
	PRIMARY KEY(code, child),
	FOREIGN KEY(code) REFERENCES codification(code) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS patterns (
	key TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	pattern TEXT,
	position INTEGER NOT NULL,
	exception INTEGER NOT NULL DEFAULT 0,
	targets_next INTEGER NOT NULL DEFAULT 0,
	ord INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS codes (
	kind TEXT NOT NULL,
	code TEXT NOT NULL,
	ord INTEGER NOT NULL,
	PRIMARY KEY(kind, code)
);

CREATE TABLE IF NOT EXISTS hierarchy_disciplines (
	discipline TEXT PRIMARY KEY,
	ord INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hierarchy_roles (
	discipline TEXT NOT NULL,
	ord INTEGER NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY(discipline, ord),
	FOREIGN KEY(discipline) REFERENCES hierarchy_disciplines(discipline) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS hierarchy_specs (
	discipline TEXT NOT NULL,
	role TEXT NOT NULL,
	part TEXT NOT NULL,
	ord INTEGER NOT NULL,
	key TEXT NOT NULL,
	PRIMARY KEY(discipline, role, part, ord),
	FOREIGN KEY(discipline) REFERENCES hierarchy_disciplines(discipline) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS outcomes (
	item_id TEXT PRIMARY KEY,
	tag TEXT,
	discipline TEXT,
	bucket TEXT NOT NULL,
	route TEXT,
	quality TEXT,
	score INTEGER NOT NULL DEFAULT 0,
	chain TEXT,
	snapshot_version TEXT,
	processed_at TEXT
);

CREATE INDEX IF NOT EXISTS outcomes_bucket ON outcomes(bucket);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

const (
	codeDiscipline = "discipline"
	codeEntity     = "entity"

	partAffix  = "affix"
	partBase   = "base"
	partSuffix = "suffix"
)

// ImportRegistry replaces the stored registry set in a single transaction.
func (s *sqliteStore) ImportRegistry(ctx context.Context, p registry.Parts) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"codification_children", "codification", "patterns", "codes", "hierarchy_specs", "hierarchy_roles", "hierarchy_disciplines"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	if err := insertCodification(ctx, tx, p.Codification); err != nil {
		return fmt.Errorf("import codification: %w", err)
	}
	if err := insertPatterns(ctx, tx, p.Patterns); err != nil {
		return fmt.Errorf("import patterns: %w", err)
	}
	if err := insertCodes(ctx, tx, codeDiscipline, p.Disciplines); err != nil {
		return fmt.Errorf("import disciplines: %w", err)
	}
	if err := insertCodes(ctx, tx, codeEntity, p.Entities); err != nil {
		return fmt.Errorf("import entities: %w", err)
	}
	if err := insertHierarchy(ctx, tx, p.Hierarchy); err != nil {
		return fmt.Errorf("import hierarchy: %w", err)
	}

	return tx.Commit()
}

func insertCodification(ctx context.Context, tx *sql.Tx, entries []registry.CodificationEntry) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO codification (code, type, parent, ord) VALUES (?, ?, ?, ?)
ON CONFLICT(code) DO UPDATE SET type=excluded.type, parent=excluded.parent;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	child, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO codification_children (code, child, ord) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer child.Close()

	for i, e := range entries {
		if e.Code == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.Code, e.Type.String(), e.ParentCode, i); err != nil {
			return err
		}
		for j, c := range uniqueStrings(e.Children) {
			if _, err := child.ExecContext(ctx, e.Code, c, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertPatterns(ctx context.Context, tx *sql.Tx, specs []registry.PatternSpec) error {
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO patterns (key, kind, pattern, position, exception, targets_next, ord)
VALUES (?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range specs {
		if _, err := stmt.ExecContext(ctx, p.Key, p.Kind.String(), p.Pattern, p.Position, p.Exception, p.TargetsNext, i); err != nil {
			return err
		}
	}
	return nil
}

func insertCodes(ctx context.Context, tx *sql.Tx, kind string, codes []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO codes (kind, code, ord) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, c := range uniqueStrings(codes) {
		if _, err := stmt.ExecContext(ctx, kind, c, i); err != nil {
			return err
		}
	}
	return nil
}

func insertHierarchy(ctx context.Context, tx *sql.Tx, defs []registry.DisciplineHierarchy) error {
	disc, err := tx.PrepareContext(ctx, `
INSERT INTO hierarchy_disciplines (discipline, ord) VALUES (?, ?)
ON CONFLICT(discipline) DO NOTHING;
`)
	if err != nil {
		return err
	}
	defer disc.Close()
	role, err := tx.PrepareContext(ctx, `INSERT INTO hierarchy_roles (discipline, ord, role) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer role.Close()
	spec, err := tx.PrepareContext(ctx, `INSERT INTO hierarchy_specs (discipline, role, part, ord, key) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer spec.Close()

	for i, d := range defs {
		if d.Discipline == "" {
			continue
		}
		// A later definition of the same discipline wins, as in the registry.
		for _, table := range []string{"hierarchy_roles", "hierarchy_specs"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE discipline=?", d.Discipline); err != nil {
				return err
			}
		}
		if _, err := disc.ExecContext(ctx, d.Discipline, i); err != nil {
			return err
		}
		for j, r := range d.Roles {
			if _, err := role.ExecContext(ctx, d.Discipline, j, r); err != nil {
				return err
			}
		}
		for name, rs := range d.RoleSpecs {
			parts := []struct {
				part string
				keys []string
			}{{partAffix, rs.AffixKeys}, {partBase, rs.BaseKeys}, {partSuffix, rs.SuffixKeys}}
			for _, p := range parts {
				for k, key := range p.keys {
					if _, err := spec.ExecContext(ctx, d.Discipline, name, p.part, k, key); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// LoadRegistry reads the stored registry set back in declaration order.
func (s *sqliteStore) LoadRegistry(ctx context.Context) (registry.Parts, error) {
	var (
		p   registry.Parts
		err error
	)
	if p.Codification, err = s.loadCodification(ctx); err != nil {
		return registry.Parts{}, fmt.Errorf("load codification: %w", err)
	}
	if p.Patterns, err = s.loadPatterns(ctx); err != nil {
		return registry.Parts{}, fmt.Errorf("load patterns: %w", err)
	}
	if p.Disciplines, err = s.loadStringColumn(ctx, `SELECT code FROM codes WHERE kind=? ORDER BY ord`, codeDiscipline); err != nil {
		return registry.Parts{}, fmt.Errorf("load disciplines: %w", err)
	}
	if p.Entities, err = s.loadStringColumn(ctx, `SELECT code FROM codes WHERE kind=? ORDER BY ord`, codeEntity); err != nil {
		return registry.Parts{}, fmt.Errorf("load entities: %w", err)
	}
	if p.Hierarchy, err = s.loadHierarchy(ctx); err != nil {
		return registry.Parts{}, fmt.Errorf("load hierarchy: %w", err)
	}
	return p, nil
}

func (s *sqliteStore) loadCodification(ctx context.Context) ([]registry.CodificationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, type, COALESCE(parent, '') FROM codification ORDER BY ord`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []registry.CodificationEntry
	for rows.Next() {
		var (
			e   registry.CodificationEntry
			typ string
		)
		if err := rows.Scan(&e.Code, &typ, &e.ParentCode); err != nil {
			return nil, err
		}
		if e.Type, err = registry.ParseCodificationType(typ); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Children, err = s.loadStringColumn(ctx, `SELECT child FROM codification_children WHERE code=? ORDER BY ord`, entries[i].Code)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *sqliteStore) loadPatterns(ctx context.Context) ([]registry.PatternSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key, kind, COALESCE(pattern, ''), position, exception, targets_next
FROM patterns
ORDER BY ord;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []registry.PatternSpec
	for rows.Next() {
		var (
			p    registry.PatternSpec
			kind string
		)
		if err := rows.Scan(&p.Key, &kind, &p.Pattern, &p.Position, &p.Exception, &p.TargetsNext); err != nil {
			return nil, err
		}
		if p.Kind, err = token.ParseKind(kind); err != nil {
			return nil, err
		}
		specs = append(specs, p)
	}
	return specs, rows.Err()
}

func (s *sqliteStore) loadHierarchy(ctx context.Context) ([]registry.DisciplineHierarchy, error) {
	names, err := s.loadStringColumn(ctx, `SELECT discipline FROM hierarchy_disciplines ORDER BY ord`)
	if err != nil {
		return nil, err
	}

	defs := make([]registry.DisciplineHierarchy, 0, len(names))
	for _, name := range names {
		d := registry.DisciplineHierarchy{Discipline: name}
		if d.Roles, err = s.loadStringColumn(ctx, `SELECT role FROM hierarchy_roles WHERE discipline=? ORDER BY ord`, name); err != nil {
			return nil, err
		}
		if d.RoleSpecs, err = s.loadRoleSpecs(ctx, name); err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

func (s *sqliteStore) loadRoleSpecs(ctx context.Context, discipline string) (map[string]registry.RoleSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT role, part, key
FROM hierarchy_specs
WHERE discipline=?
ORDER BY role, part, ord;
`, discipline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs map[string]registry.RoleSpec
	for rows.Next() {
		var role, part, key string
		if err := rows.Scan(&role, &part, &key); err != nil {
			return nil, err
		}
		if specs == nil {
			specs = make(map[string]registry.RoleSpec)
		}
		rs := specs[role]
		switch part {
		case partAffix:
			rs.AffixKeys = append(rs.AffixKeys, key)
		case partBase:
			rs.BaseKeys = append(rs.BaseKeys, key)
		case partSuffix:
			rs.SuffixKeys = append(rs.SuffixKeys, key)
		default:
			return nil, fmt.Errorf("role %s: unknown spec part %q", role, part)
		}
		specs[role] = rs
	}
	return specs, rows.Err()
}

// UpsertOutcome inserts or replaces the outcome of one item.
func (s *sqliteStore) UpsertOutcome(ctx context.Context, o store.Outcome) error {
	if o.ItemID == "" {
		return fmt.Errorf("upsert outcome: %w: empty item id", internalerr.ErrInvalidInput)
	}
	chain, err := json.Marshal(o.Chain)
	if err != nil {
		return err
	}
	processed := o.ProcessedAt
	if processed.IsZero() {
		processed = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO outcomes (item_id, tag, discipline, bucket, route, quality, score, chain, snapshot_version, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(item_id) DO UPDATE SET
	tag=excluded.tag,
	discipline=excluded.discipline,
	bucket=excluded.bucket,
	route=excluded.route,
	quality=excluded.quality,
	score=excluded.score,
	chain=excluded.chain,
	snapshot_version=excluded.snapshot_version,
	processed_at=excluded.processed_at;
`, o.ItemID, o.Tag, o.Discipline, o.Bucket, o.Route, o.QualityLabel, o.Score, string(chain),
		o.SnapshotVersion, processed.UTC().Format(timeLayout))
	return err
}

const outcomeColumns = `item_id, COALESCE(tag, ''), COALESCE(discipline, ''), bucket, COALESCE(route, ''),
	COALESCE(quality, ''), score, COALESCE(chain, ''), COALESCE(snapshot_version, ''), COALESCE(processed_at, '')`

// GetOutcome retrieves the outcome of an item.
func (s *sqliteStore) GetOutcome(ctx context.Context, itemID string) (store.Outcome, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+outcomeColumns+` FROM outcomes WHERE item_id = ?`, itemID)
	o, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Outcome{}, fmt.Errorf("outcome %s: %w", itemID, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Outcome{}, err
	}
	return o, nil
}

// OutcomesByBucket lists outcomes of a bucket, newest first.
func (s *sqliteStore) OutcomesByBucket(ctx context.Context, bucket string, limit int) ([]store.Outcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+outcomeColumns+`
FROM outcomes
WHERE bucket = ?
ORDER BY processed_at DESC, item_id
LIMIT ?;
`, bucket, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountByBucket returns the number of stored outcomes per bucket.
func (s *sqliteStore) CountByBucket(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, COUNT(*) FROM outcomes GROUP BY bucket`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			bucket string
			n      int
		)
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, err
		}
		counts[bucket] = n
	}
	return counts, rows.Err()
}

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface {
	Scan(dest ...any) error
}

func scanOutcome(sc scanner) (store.Outcome, error) {
	var (
		o                store.Outcome
		chain, processed string
	)
	err := sc.Scan(&o.ItemID, &o.Tag, &o.Discipline, &o.Bucket, &o.Route, &o.QualityLabel, &o.Score,
		&chain, &o.SnapshotVersion, &processed)
	if err != nil {
		return store.Outcome{}, err
	}
	if chain != "" {
		if err := json.Unmarshal([]byte(chain), &o.Chain); err != nil {
			return store.Outcome{}, fmt.Errorf("outcome %s: decode chain: %w", o.ItemID, err)
		}
	}
	if processed != "" {
		if parsed, perr := time.Parse(timeLayout, processed); perr == nil {
			o.ProcessedAt = parsed
		}
	}
	return o, nil
}

func (s *sqliteStore) loadStringColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, rows.Err()
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
