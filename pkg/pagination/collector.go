package pagination

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mcaveniathor/fema-web-declaration/pkg/logging"
	"github.com/mcaveniathor/fema-web-declaration/pkg/openfema"
)

// Getter fetches one URL and returns the raw response body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Config holds collector configuration.
type Config struct {
	// BaseURL is the endpoint to page through.
	BaseURL string

	// Query is the fixed query string appended to every page request.
	Query string

	// PageSize is the number of records per page. Defaults to the server
	// maximum.
	PageSize int

	// Workers sets the number of concurrent page fetches after page 0.
	// Values below 2 select the sequential flow.
	Workers int
}

// Collector retrieves every record matching the configured query.
type Collector struct {
	getter   Getter
	base     string
	query    string
	pageSize int
	workers  int
	logger   zerolog.Logger
}

// NewCollector creates a collector for the given endpoint and query.
func NewCollector(getter Getter, cfg Config) (*Collector, error) {
	if getter == nil {
		return nil, fmt.Errorf("getter is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = openfema.PageSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return &Collector{
		getter:   getter,
		base:     cfg.BaseURL,
		query:    cfg.Query,
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
		logger:   logging.NewLogger("collector"),
	}, nil
}

// TotalPages computes the number of page requests issued for count matching
// records at the given page size. The integer division means an exact
// multiple of pageSize still yields one trailing request whose page is
// expected to come back empty; callers tolerate that rather than treat it as
// an error.
func TotalPages(count, pageSize int) int {
	return count/pageSize + 1
}

// Collect retrieves the complete ordered record set. Page 0 is fetched with
// metadata to learn the total count; the remaining pages follow. Any failure
// aborts the entire operation with no partial result.
func (c *Collector) Collect(ctx context.Context) ([]openfema.DeclarationArea, error) {
	body, err := c.getter.Get(ctx, openfema.PageURL(true, c.base, c.query, 0, c.pageSize))
	if err != nil {
		return nil, fmt.Errorf("fetch page 0: %w", err)
	}

	var first openfema.MetadataResponse
	if err := json.Unmarshal(body, &first); err != nil {
		return nil, fmt.Errorf("decode page 0: %w", err)
	}

	count := first.Metadata.Count
	if count < 0 {
		// A corrupt negative count would panic the pre-size below.
		count = 0
	}
	c.logger.Info().Int("count", count).Msg("Server has matching results")

	entries := make([]openfema.DeclarationArea, 0, count)
	entries = append(entries, first.Areas...)

	totalPages := TotalPages(count, c.pageSize)
	if totalPages > 1 {
		if c.workers > 1 {
			entries, err = c.collectConcurrent(ctx, entries, count, totalPages)
		} else {
			entries, err = c.collectSequential(ctx, entries, count, totalPages)
		}
		if err != nil {
			return nil, err
		}
	}

	c.logger.Info().Int("collected", len(entries)).Msg("Retrieval complete")
	return entries, nil
}

// collectSequential fetches pages 1..totalPages-1 one at a time, each request
// fully resolved before the next is built.
func (c *Collector) collectSequential(ctx context.Context, entries []openfema.DeclarationArea, count, totalPages int) ([]openfema.DeclarationArea, error) {
	for page := 1; page < totalPages; page++ {
		start, end := c.pageBounds(page, count)
		c.logger.Debug().Int("start", start).Int("end", end).Msg("Requesting results")

		areas, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		c.logger.Debug().Int("start", start).Int("end", end).Msg("Received results from server")
		entries = append(entries, areas...)
	}

	return entries, nil
}

// collectConcurrent fetches pages 1..totalPages-1 through a bounded worker
// pool. Each page writes into its own slot and the slots are concatenated in
// page order, so the result matches the sequential flow record for record.
// The first failing page cancels the rest.
func (c *Collector) collectConcurrent(ctx context.Context, entries []openfema.DeclarationArea, count, totalPages int) ([]openfema.DeclarationArea, error) {
	slots := make([][]openfema.DeclarationArea, totalPages)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for page := 1; page < totalPages; page++ {
		g.Go(func() error {
			start, end := c.pageBounds(page, count)
			c.logger.Debug().Int("start", start).Int("end", end).Msg("Requesting results")

			areas, err := c.fetchPage(gctx, page)
			if err != nil {
				return err
			}

			c.logger.Debug().Int("start", start).Int("end", end).Msg("Received results from server")
			slots[page] = areas
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for page := 1; page < totalPages; page++ {
		entries = append(entries, slots[page]...)
	}

	return entries, nil
}

// fetchPage retrieves and decodes one metadata-free page.
func (c *Collector) fetchPage(ctx context.Context, page int) ([]openfema.DeclarationArea, error) {
	body, err := c.getter.Get(ctx, openfema.PageURL(false, c.base, c.query, page, c.pageSize))
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	var resp openfema.PageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}

	return resp.Areas, nil
}

// pageBounds reports the record index range a page covers, capped at count.
func (c *Collector) pageBounds(page, count int) (int, int) {
	start := page * c.pageSize
	end := (page + 1) * c.pageSize
	if end > count {
		end = count
	}
	return start, end
}
