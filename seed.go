package newsapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gopkg.in/yaml.v3"
)

// CategoryVocabulary is the taxonomy vocabulary news tags are stored in.
const CategoryVocabulary = "news_category"

// Fixture is a seed file: news items plus an optional API key.
type Fixture struct {
	AuthKey *string       `yaml:"authkey"`
	News    []FixtureNews `yaml:"news"`
}

// FixtureNews is one news item of a fixture.
type FixtureNews struct {
	Title     string         `yaml:"title"`
	Body      string         `yaml:"body"`
	Summary   string         `yaml:"summary"`
	Published string         `yaml:"published"`
	Tags      []string       `yaml:"tags"`
	Images    []FixtureImage `yaml:"images"`
	Views     []int          `yaml:"views"`
}

// FixtureImage points at an image file relative to the fixture.
type FixtureImage struct {
	Path  string `yaml:"path"`
	Title string `yaml:"title"`
	Alt   string `yaml:"alt"`
}

// SeedStats counts the rows an import created.
type SeedStats struct {
	Nodes  int
	Terms  int
	Files  int
	Views  int
	Images int
}

// LoadFixture reads and parses a YAML fixture.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, n := range fx.News {
		if n.Title == "" {
			return Fixture{}, fmt.Errorf("%s: news[%d]: title is required", path, i)
		}
		if _, err := parsePublished(n.Published); err != nil {
			return Fixture{}, fmt.Errorf("%s: news[%d]: %w", path, i, err)
		}
		for j, img := range n.Images {
			if img.Path == "" {
				return Fixture{}, fmt.Errorf("%s: news[%d].images[%d]: path is required", path, i, j)
			}
		}
	}
	return fx, nil
}

// parsePublished accepts RFC 3339 timestamps and plain dates (UTC midnight).
// An empty value is the zero unix time.
func parsePublished(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return 0, fmt.Errorf("invalid published %q: use YYYY-MM-DD or RFC 3339", s)
	}
	return t.Unix(), nil
}

// ImportOptions controls where Import reads and writes.
type ImportOptions struct {
	NodeType string // content type of the created nodes
	BaseDir  string // relative image paths resolve against it
	FilesDir string // public files directory images are copied into
}

// Import writes the fixture's news items into the store in one
// transaction. Terms are matched by label, so re-importing reuses them.
func (s *Store) Import(ctx context.Context, fx Fixture, opts ImportOptions) (SeedStats, error) {
	var stats SeedStats

	// Images are processed before the transaction opens so a bad file
	// leaves the database untouched.
	stored := make([][]StoredImage, len(fx.News))
	for i, n := range fx.News {
		for _, img := range n.Images {
			src := img.Path
			if !filepath.IsAbs(src) {
				src = filepath.Join(opts.BaseDir, src)
			}
			si, err := importImage(src, opts.FilesDir)
			if err != nil {
				return stats, fmt.Errorf("import image: %w", err)
			}
			stored[i] = append(stored[i], si)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer tx.Rollback()
	sb := s.sb.RunWith(tx)

	terms := make(map[string]int64)
	for i, n := range fx.News {
		published, _ := parsePublished(n.Published)

		var nid int64
		err := sb.Insert("node").
			Columns("type", "title", "body_value", "body_summary", "published_at").
			Values(opts.NodeType, n.Title, n.Body, n.Summary, published).
			Suffix("RETURNING id").
			QueryRowContext(ctx).
			Scan(&nid)
		if err != nil {
			return stats, fmt.Errorf("insert node %q: %w", n.Title, err)
		}
		stats.Nodes++

		for delta, label := range n.Tags {
			tid, created, err := findOrCreateTerm(ctx, sb, terms, label)
			if err != nil {
				return stats, err
			}
			if created {
				stats.Terms++
			}
			if _, err := sb.Insert("node_field_reference").
				Columns("node_id", "field", "delta", "target_id").
				Values(nid, FieldCategory, delta, tid).
				ExecContext(ctx); err != nil {
				return stats, fmt.Errorf("insert tag reference: %w", err)
			}
		}

		for delta, si := range stored[i] {
			var fid int64
			err := sb.Insert("file_managed").
				Columns("uri", "filename", "filemime", "filesize").
				Values(si.File.URI, si.File.Filename, si.File.MIME, si.File.Size).
				Suffix("RETURNING id").
				QueryRowContext(ctx).
				Scan(&fid)
			if err != nil {
				return stats, fmt.Errorf("insert file %s: %w", si.File.URI, err)
			}
			stats.Files++

			meta := n.Images[delta]
			if _, err := sb.Insert("node_field_image").
				Columns("node_id", "field", "delta", "target_id", "title", "alt", "width", "height").
				Values(nid, FieldImages, delta, fid, meta.Title, meta.Alt, si.Width, si.Height).
				ExecContext(ctx); err != nil {
				return stats, fmt.Errorf("insert image field: %w", err)
			}
			stats.Images++
		}

		for _, count := range n.Views {
			if _, err := sb.Insert("nodeviewcount").
				Columns("nid", "count").
				Values(nid, count).
				ExecContext(ctx); err != nil {
				return stats, fmt.Errorf("insert view count: %w", err)
			}
			stats.Views++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, err
	}
	return stats, nil
}

func findOrCreateTerm(ctx context.Context, sb sq.StatementBuilderType, cache map[string]int64, label string) (int64, bool, error) {
	if id, ok := cache[label]; ok {
		return id, false, nil
	}
	var id int64
	err := sb.Select("id").
		From("taxonomy_term").
		Where(sq.Eq{"vid": CategoryVocabulary, "label": label}).
		OrderBy("id").
		Limit(1).
		QueryRowContext(ctx).
		Scan(&id)
	if err == nil {
		cache[label] = id
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("find term %q: %w", label, err)
	}
	err = sb.Insert("taxonomy_term").
		Columns("vid", "label").
		Values(CategoryVocabulary, label).
		Suffix("RETURNING id").
		QueryRowContext(ctx).
		Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("insert term %q: %w", label, err)
	}
	cache[label] = id
	return id, true, nil
}

// Seed loads the fixture at path into the configured database and, when
// the fixture sets one, stores the API key in the configured settings
// backend.
func Seed(ctx context.Context, cfg Config, path string) (SeedStats, error) {
	fx, err := LoadFixture(path)
	if err != nil {
		return SeedStats{}, err
	}
	store, err := NewStore(cfg.Database, cfg.Files.URLPath)
	if err != nil {
		return SeedStats{}, err
	}
	defer store.Close()

	stats, err := store.Import(ctx, fx, ImportOptions{
		NodeType: cfg.News.NodeType,
		BaseDir:  filepath.Dir(path),
		FilesDir: cfg.Files.Dir,
	})
	if err != nil {
		return stats, err
	}

	if fx.AuthKey != nil {
		var backend SettingsStore = store
		if cfg.Settings.Backend == "redis" {
			rs, err := NewRedisSettings(ctx, cfg.Settings)
			if err != nil {
				return stats, err
			}
			defer rs.Close()
			backend = rs
		}
		if err := NewSettings(backend).SetAuthKey(ctx, *fx.AuthKey); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
