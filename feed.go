package newsapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

// Fixed response texts of the news endpoint. Clients match on them.
const (
	FeedTitle    = "News Node Data"
	MsgNoNews    = "No news for the Tag was found."
	MsgForbidden = "Forbidden"
)

// Feed answers news queries: it checks the shared key, loads every news
// node, shapes the records and filters them by tag.
type Feed struct {
	content   ContentReader
	files     FileReader
	counts    CountReader
	settings  *Settings
	nodeType  string
	imageHost string
	loc       *time.Location
}

// NewFeed wires a Feed to its collaborators.
func NewFeed(content ContentReader, files FileReader, counts CountReader, settings *Settings, cfg NewsConfig) *Feed {
	return &Feed{
		content:   content,
		files:     files,
		counts:    counts,
		settings:  settings,
		nodeType:  cfg.NodeType,
		imageHost: cfg.ImageHost,
		loc:       cfg.Location(),
	}
}

// Authorize accepts GET requests whose credential equals the stored authkey.
// An unset authkey equals the empty credential.
func (f *Feed) Authorize(ctx context.Context, method, credential string) (bool, error) {
	if method != http.MethodGet {
		return false, nil
	}
	key, err := f.settings.AuthKey(ctx)
	if err != nil {
		return false, fmt.Errorf("read authkey: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(credential), []byte(key)) == 1, nil
}

// Query returns the records tagged with tag. Without a tag nothing is
// returned and the caller reports the not-found message.
func (f *Feed) Query(ctx context.Context, tag string) ([]NewsRecord, error) {
	if tag == "" {
		return nil, nil
	}
	records, err := f.Build(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByTag(records, tag), nil
}

// Build shapes every news node into a NewsRecord, in load order.
func (f *Feed) Build(ctx context.Context) ([]NewsRecord, error) {
	nodes, err := f.content.LoadNodes(ctx, f.nodeType)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	counts, err := f.counts.ViewCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load view counts: %w", err)
	}

	records := make([]NewsRecord, 0, len(nodes))
	for _, n := range nodes {
		rec, err := f.shape(ctx, n, counts[n.ID])
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (f *Feed) shape(ctx context.Context, n Node, viewcount []int) (NewsRecord, error) {
	tags, err := f.content.ReferencedLabels(ctx, n.ID, FieldCategory)
	if err != nil {
		return NewsRecord{}, err
	}
	if tags == nil {
		tags = []string{}
	}

	items, err := f.content.ImageItems(ctx, n.ID, FieldImages)
	if err != nil {
		return NewsRecord{}, err
	}
	images := make([]ImageRecord, 0, len(items))
	for _, it := range items {
		u, err := f.imageURL(ctx, it.TargetID)
		if err != nil {
			return NewsRecord{}, err
		}
		images = append(images, ImageRecord{
			Title:    it.Title,
			Alt:      it.Alt,
			Height:   it.Height,
			Width:    it.Width,
			TargetID: it.TargetID,
			URL:      u,
		})
	}

	if viewcount == nil {
		viewcount = []int{}
	}

	return NewsRecord{
		Title:         n.Title,
		Body:          n.Body.Value,
		Summary:       n.Body.Summary,
		Image:         images,
		PublishedDate: FormatPublished(n.PublishedAt, f.loc),
		Tags:          tags,
		ViewCount:     viewcount,
	}, nil
}

// imageURL returns "" for a dangling file reference.
func (f *Feed) imageURL(ctx context.Context, fileID int64) (string, error) {
	file, err := f.files.LoadFile(ctx, fileID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load file %d: %w", fileID, err)
	}
	return f.imageHost + f.files.PublicURL(file), nil
}

// FormatPublished renders a unix timestamp as YYYY-MM-DD in loc.
func FormatPublished(unix int64, loc *time.Location) string {
	return time.Unix(unix, 0).In(loc).Format(time.DateOnly)
}

// FilterByTag keeps the records whose tags contain tag exactly
// (case-sensitive), preserving order. Each record appears at most once.
func FilterByTag(records []NewsRecord, tag string) []NewsRecord {
	var out []NewsRecord
	for _, r := range records {
		if slices.Contains(r.Tags, tag) {
			out = append(out, r)
		}
	}
	return out
}
