package newsapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const publicScheme = "public://"

// Store is the SQL adapter over the content platform's tables. It serves
// nodes, term references, image fields, managed files, view counts and
// the config key/value table.
type Store struct {
	db         *sql.DB
	driver     string
	sb         sq.StatementBuilderType
	publicPath string
}

var (
	_ ContentReader = (*Store)(nil)
	_ FileReader    = (*Store)(nil)
	_ CountReader   = (*Store)(nil)
	_ SettingsStore = (*Store)(nil)
)

// NewStore opens the database described by cfg and ensures the schema.
// publicPath is the URL path public:// files are served under.
func NewStore(cfg DatabaseConfig, publicPath string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case "postgres":
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	case "sqlite", "":
		db, err = openSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		cfg.Driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	s := &Store{
		db:         db,
		driver:     cfg.Driver,
		sb:         sq.StatementBuilder.PlaceholderFormat(placeholderFor(cfg.Driver)).RunWith(db),
		publicPath: strings.TrimRight(publicPath, "/"),
	}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	if driver == "postgres" {
		return sq.Dollar
	}
	return sq.Question
}

// isMemoryDSN reports whether path names an in-memory SQLite database.
func isMemoryDSN(path string) bool {
	return path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

func openSQLite(path string) (*sql.DB, error) {
	memory := isMemoryDSN(path)
	if !memory && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if memory {
		// Every connection to :memory: opens its own empty database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	// WAL lets the seed tool write while the server reads; the busy timeout
	// makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	pk := "INTEGER PRIMARY KEY"
	if s.driver == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}
	_, err := s.db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS node (
    id %[1]s,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    body_value TEXT NOT NULL DEFAULT '',
    body_summary TEXT NOT NULL DEFAULT '',
    published_at BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_node_type ON node(type);

CREATE TABLE IF NOT EXISTS taxonomy_term (
    id %[1]s,
    vid TEXT NOT NULL,
    label TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS node_field_reference (
    node_id BIGINT NOT NULL,
    field TEXT NOT NULL,
    delta INTEGER NOT NULL,
    target_id BIGINT NOT NULL,
    PRIMARY KEY (node_id, field, delta)
);

CREATE TABLE IF NOT EXISTS node_field_image (
    node_id BIGINT NOT NULL,
    field TEXT NOT NULL,
    delta INTEGER NOT NULL,
    target_id BIGINT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    alt TEXT NOT NULL DEFAULT '',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (node_id, field, delta)
);

CREATE TABLE IF NOT EXISTS file_managed (
    id %[1]s,
    uri TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    filemime TEXT NOT NULL DEFAULT '',
    filesize BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS nodeviewcount (
    id %[1]s,
    nid BIGINT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_nodeviewcount_nid ON nodeviewcount(nid);

CREATE TABLE IF NOT EXISTS config (
    collection TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (collection, name)
);
`, pk))
	return err
}

// LoadNodes returns all nodes of nodeType ordered by id.
func (s *Store) LoadNodes(ctx context.Context, nodeType string) ([]Node, error) {
	rows, err := s.sb.
		Select("id", "type", "title", "body_value", "body_summary", "published_at").
		From("node").
		Where(sq.Eq{"type": nodeType}).
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Body.Value, &n.Body.Summary, &n.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// ReferencedLabels returns term labels referenced by field. The inner join
// drops references whose term was deleted.
func (s *Store) ReferencedLabels(ctx context.Context, nodeID int64, field string) ([]string, error) {
	rows, err := s.sb.
		Select("t.label").
		From("node_field_reference r").
		Join("taxonomy_term t ON t.id = r.target_id").
		Where(sq.Eq{"r.node_id": nodeID, "r.field": field}).
		OrderBy("r.delta").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// ImageItems returns the values of an image field in delta order.
func (s *Store) ImageItems(ctx context.Context, nodeID int64, field string) ([]ImageItem, error) {
	rows, err := s.sb.
		Select("target_id", "title", "alt", "width", "height").
		From("node_field_image").
		Where(sq.Eq{"node_id": nodeID, "field": field}).
		OrderBy("delta").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var items []ImageItem
	for rows.Next() {
		var it ImageItem
		if err := rows.Scan(&it.TargetID, &it.Title, &it.Alt, &it.Width, &it.Height); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// LoadFile returns the managed file with id, or ErrNotFound.
func (s *Store) LoadFile(ctx context.Context, id int64) (File, error) {
	var f File
	err := s.sb.
		Select("id", "uri", "filename", "filemime", "filesize").
		From("file_managed").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&f.ID, &f.URI, &f.Filename, &f.MIME, &f.Size)
	if err != nil {
		return File{}, err
	}
	return f, nil
}

// PublicURL maps public://a/b.jpg to <publicPath>/a/b.jpg with each path
// segment percent-encoded like PHP's rawurlencode. Other schemes are
// returned unchanged.
func (s *Store) PublicURL(f File) string {
	target, ok := strings.CutPrefix(f.URI, publicScheme)
	if !ok {
		return f.URI
	}
	segments := strings.Split(target, "/")
	for i := range segments {
		segments[i] = rawURLEncode(segments[i])
	}
	return s.publicPath + "/" + strings.Join(segments, "/")
}

// rawURLEncode escapes every byte outside A-Z a-z 0-9 - _ . ~ as %XX.
func rawURLEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0x0f])
		}
	}
	return b.String()
}

// viewCountBatch bounds the ids bound into one IN list. SQLite allows
// 32766 parameters per statement and Postgres 65535.
const viewCountBatch = 1000

// ViewCounts fetches the count rows for nodeIDs, viewCountBatch ids per
// query. Rows of one node stay ordered by id.
func (s *Store) ViewCounts(ctx context.Context, nodeIDs []int64) (map[int64][]int, error) {
	counts := make(map[int64][]int)
	for batch := range slices.Chunk(nodeIDs, viewCountBatch) {
		if err := s.queryViewCounts(ctx, batch, counts); err != nil {
			return nil, err
		}
	}
	return counts, nil
}

func (s *Store) queryViewCounts(ctx context.Context, nodeIDs []int64, counts map[int64][]int) error {
	rows, err := s.sb.
		Select("nid", "count").
		From("nodeviewcount").
		Where(sq.Eq{"nid": nodeIDs}).
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("query view counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var nid int64
		var count int
		if err := rows.Scan(&nid, &count); err != nil {
			return fmt.Errorf("scan view count: %w", err)
		}
		counts[nid] = append(counts[nid], count)
	}
	return rows.Err()
}

// Get returns a config value, or "" if it was never set.
func (s *Store) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := s.sb.
		Select("value").
		From("config").
		Where(sq.Eq{"collection": namespace, "name": key}).
		QueryRowContext(ctx).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s.%s: %w", namespace, key, err)
	}
	return value, nil
}

// Set upserts a config value.
func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	_, err := s.sb.
		Insert("config").
		Columns("collection", "name", "value").
		Values(namespace, key, value).
		Suffix("ON CONFLICT (collection, name) DO UPDATE SET value = excluded.value").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", namespace, key, err)
	}
	return nil
}
