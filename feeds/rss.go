// Package feeds imports news from RSS and Atom feeds.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/jhchabran/newsroom"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const fetchTimeout = 30 * time.Second

// NewsInserter is the part of newsroom.Store the importer needs.
type NewsInserter interface {
	InsertNews(news *newsroom.News) error
}

// contextTransport injects a context into every outgoing request, the rss library
// having no context aware API.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

type Importer struct {
	store  NewsInserter
	logger zerolog.Logger
	// Transport is used to fetch feeds, http.DefaultTransport if nil.
	Transport http.RoundTripper
}

func NewImporter(store NewsInserter, logger zerolog.Logger) *Importer {
	return &Importer{store: store, logger: logger}
}

// Fetch downloads the feed at url and turns its items into news. Items without a title are skipped.
func (i *Importer) Fetch(ctx context.Context, url string) ([]*newsroom.News, error) {
	base := i.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: contextTransport{ctx: ctx, base: base},
		Timeout:   fetchTimeout,
	}

	feed, err := rss.FetchByClient(url, client)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", url, err)
	}

	items := lo.Filter(feed.Items, func(item *rss.Item, _ int) bool {
		return strings.TrimSpace(item.Title) != ""
	})

	return lo.Map(items, func(item *rss.Item, _ int) *newsroom.News {
		news := newsroom.NewNews(strings.TrimSpace(item.Title), itemText(item))
		if !item.Date.IsZero() {
			d := item.Date.UTC()
			news.Date = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		return news
	}), nil
}

// Import stores every news of the feed at url, returning how many were stored.
func (i *Importer) Import(ctx context.Context, url string) (int, error) {
	news, err := i.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}

	for n, item := range news {
		if err := i.store.InsertNews(item); err != nil {
			return n, fmt.Errorf("failed to import %q: %w", item.Title, err)
		}
	}

	i.logger.Info().Str("url", url).Int("count", len(news)).Msg("Imported feed")
	return len(news), nil
}

// itemText prefers the full content of an item over its summary.
func itemText(item *rss.Item) string {
	if c := strings.TrimSpace(item.Content); c != "" {
		return c
	}
	return strings.TrimSpace(item.Summary)
}
