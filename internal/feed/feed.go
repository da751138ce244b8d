// Package feed fetches paper metadata from the arXiv category feeds.
package feed

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultBaseURL is the arXiv RSS endpoint; the category id is appended.
const DefaultBaseURL = "https://rss.arxiv.org/rss"

// Entry is one paper as reported by the feed. This is the only field
// contract the rest of the pipeline depends on.
type Entry struct {
	ID       string
	Title    string
	Authors  []string
	Abstract string
	Updated  time.Time
}

// Source fetches entries strictly newer than cutoff for a category.
type Source interface {
	Fetch(ctx context.Context, category string, cutoff time.Time) ([]Entry, error)
}

// ArxivSource implements Source against the arXiv RSS/Atom feeds.
type ArxivSource struct {
	baseURL string
	parser  *gofeed.Parser
}

// ArxivOption configures an ArxivSource.
type ArxivOption func(*ArxivSource)

// WithBaseURL overrides the feed endpoint, mainly for tests.
func WithBaseURL(url string) ArxivOption {
	return func(s *ArxivSource) { s.baseURL = strings.TrimRight(url, "/") }
}

// NewArxivSource creates a feed source for the arXiv RSS endpoint.
func NewArxivSource(opts ...ArxivOption) *ArxivSource {
	s := &ArxivSource{
		baseURL: DefaultBaseURL,
		parser:  gofeed.NewParser(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fetch downloads and parses the feed for category, keeping entries strictly
// newer than cutoff. Malformed entries (no id, no title, no usable date) are
// skipped individually rather than failing the fetch.
func (s *ArxivSource) Fetch(ctx context.Context, category string, cutoff time.Time) ([]Entry, error) {
	if _, err := LookupCategory(category); err != nil {
		return nil, err
	}

	url := s.baseURL + "/" + category
	parsed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: fetch %s", url)
	}

	log := zap.L().With(zap.String("component", "feed"), zap.String("category", category))

	entries := make([]Entry, 0, len(parsed.Items))
	var skipped int
	for _, item := range parsed.Items {
		e, ok := itemToEntry(item)
		if !ok {
			skipped++
			continue
		}
		if !e.Updated.After(cutoff) {
			continue
		}
		entries = append(entries, e)
	}

	if skipped > 0 {
		log.Warn("skipped malformed feed entries", zap.Int("skipped", skipped))
	}
	log.Debug("feed fetched",
		zap.Int("items", len(parsed.Items)),
		zap.Int("kept", len(entries)),
		zap.Time("cutoff", cutoff),
	)
	return entries, nil
}

func itemToEntry(item *gofeed.Item) (Entry, bool) {
	id := extractArxivID(item)
	if id == "" || item.Title == "" {
		return Entry{}, false
	}

	var updated time.Time
	switch {
	case item.UpdatedParsed != nil:
		updated = item.UpdatedParsed.UTC()
	case item.PublishedParsed != nil:
		updated = item.PublishedParsed.UTC()
	default:
		return Entry{}, false
	}

	return Entry{
		ID:       id,
		Title:    strings.TrimSpace(item.Title),
		Authors:  extractAuthors(item),
		Abstract: strings.TrimSpace(item.Description),
		Updated:  updated,
	}, true
}

// extractArxivID pulls the bare arXiv id out of the GUID or link, e.g.
// "oai:arXiv.org:2401.12345v1" or "https://arxiv.org/abs/2401.12345".
func extractArxivID(item *gofeed.Item) string {
	raw := item.GUID
	if raw == "" {
		raw = item.Link
	}
	if raw == "" {
		return ""
	}
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	return strings.TrimSpace(raw)
}

// extractAuthors reads the item author list, falling back to the Dublin Core
// creator field. The arXiv feeds publish the whole byline as a single
// comma-joined dc:creator element, which gofeed also surfaces as one Author,
// so both branches split on commas.
func extractAuthors(item *gofeed.Item) []string {
	var names []string
	for _, a := range item.Authors {
		if a != nil {
			names = appendSplitNames(names, a.Name)
		}
	}
	if len(names) > 0 {
		return names
	}
	if item.DublinCoreExt != nil {
		for _, creator := range item.DublinCoreExt.Creator {
			names = appendSplitNames(names, creator)
		}
	}
	return names
}

func appendSplitNames(names []string, byline string) []string {
	for _, name := range strings.Split(byline, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
