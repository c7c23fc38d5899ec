package opendatasoft

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"concierge-pipeline/config"
	"concierge-pipeline/lookup"
	"concierge-pipeline/models"
	"concierge-pipeline/utils"
)

const source = "opendatasoft"

// Options controls what the listings Client fetches.
type Options struct {
	BaseURL     string
	Refine      string
	PageSize    int
	MaxListings int
}

// OptionsFromConfig maps the application config onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:     cfg.ListingsURL,
		Refine:      cfg.ListingsRefine,
		PageSize:    cfg.PageSize,
		MaxListings: cfg.MaxListings,
	}
}

// Client fetches Airbnb listings from the Opendatasoft explore API.
type Client struct {
	opts   Options
	http   *http.Client
	logger *utils.Logger
	retry  *utils.RetryConfig
	seen   *utils.KeySet
}

// Page is one response of the records endpoint.
type Page struct {
	TotalCount int                 `json:"total_count"`
	Results    []models.RawListing `json:"results"`
}

// New creates a ready-to-use listings Client.
func New(opts Options, httpClient *http.Client, maxRetries int, logger *utils.Logger) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	return &Client{
		opts:   opts,
		http:   httpClient,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		seen: utils.NewKeySet(),
	}
}

// FetchAll pages through the dataset until offset reaches the smaller of
// total_count and MaxListings. Listings already seen in this run are dropped.
func (c *Client) FetchAll(ctx context.Context) ([]models.RawListing, error) {
	c.logger.Info("[%s] Starting fetch: page size %d, max %d, refine %q",
		source, c.opts.PageSize, c.opts.MaxListings, c.opts.Refine)

	var listings []models.RawListing
	offset := 0
	limit := c.opts.MaxListings

	for {
		if err := ctx.Err(); err != nil {
			return listings, err
		}

		size := c.opts.PageSize
		if limit > 0 && offset+size > limit {
			size = limit - offset
		}

		var page Page
		err := c.retry.Do(ctx, fmt.Sprintf("%s-page-offset-%d", source, offset), func() error {
			var fetchErr error
			page, fetchErr = c.FetchPage(ctx, offset, size)
			return fetchErr
		})
		if err != nil {
			return listings, fmt.Errorf("%s: fetch offset %d: %w", source, offset, err)
		}

		if offset == 0 {
			if c.opts.MaxListings <= 0 || page.TotalCount < c.opts.MaxListings {
				limit = page.TotalCount
			}
			c.logger.Info("[%s] %d listings available, fetching %d", source, page.TotalCount, limit)
		}

		listings = append(listings, c.dedupe(page.Results)...)
		offset += size

		if len(page.Results) == 0 {
			c.logger.Warn("[%s] Offset %d returned 0 listings, stopping", source, offset-size)
			break
		}
		if offset >= limit {
			break
		}
	}

	c.logger.Info("[%s] Fetch complete: %d unique listings", source, len(listings))
	return listings, nil
}

// FetchPage requests a single page of at most limit listings.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) (Page, error) {
	q := lookup.NewQuery(lookup.ListingParams)
	params := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}
	if c.opts.Refine != "" {
		params["refine"] = c.opts.Refine
	}
	if err := q.SetAll(params); err != nil {
		return Page{}, err
	}

	target, err := q.URL(c.opts.BaseURL)
	if err != nil {
		return Page{}, err
	}

	var page Page
	if err := lookup.GetJSON(ctx, c.http, target, "", &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

func (c *Client) dedupe(results []models.RawListing) []models.RawListing {
	out := make([]models.RawListing, 0, len(results))
	for _, r := range results {
		id := r.ID.String()
		if id == "" {
			c.logger.Warn("[%s] Dropping listing without id: %q", source, r.Name)
			continue
		}
		if !c.seen.Add(id) {
			c.logger.Debug("[%s] Duplicate listing %s skipped", source, id)
			continue
		}
		out = append(out, r)
	}
	return out
}
