package opendatasoft

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concierge-pipeline/utils"
)

// fakeDataset serves total listings with ids 1..total, repeating dupID on
// every page when set.
type fakeDataset struct {
	mu       sync.Mutex
	total    int
	dupID    int
	failures int
	requests []string
}

func (f *fakeDataset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.RawQuery)
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	f.mu.Unlock()

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	var items []string
	for id := offset + 1; id <= offset+limit && id <= f.total; id++ {
		items = append(items, fmt.Sprintf(`{"id":"%d","name":"Listing %d","city":"Paris","column_19":"France"}`, id, id))
	}
	if f.dupID > 0 {
		items = append(items, fmt.Sprintf(`{"id":"%d","name":"dup","city":"Paris"}`, f.dupID))
	}
	fmt.Fprintf(w, `{"total_count":%d,"results":[%s]}`, f.total, strings.Join(items, ","))
}

func newTestClient(t *testing.T, ds *fakeDataset, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(ds)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	logger := utils.NewLoggerWithOptions(io.Discard, "error", false)
	c := New(opts, srv.Client(), 3, logger)
	c.retry.BaseDelay = 0
	return c
}

func TestFetchAllStopsAtMaxListings(t *testing.T) {
	ds := &fakeDataset{total: 500}
	c := newTestClient(t, ds, Options{Refine: "column_19:France", PageSize: 100, MaxListings: 250})

	listings, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 250)
	assert.Equal(t, "250", listings[249].ID.String())

	require.Len(t, ds.requests, 3)
	assert.Contains(t, ds.requests[0], "refine=column_19%3AFrance")
	assert.Contains(t, ds.requests[2], "limit=50")
	assert.Contains(t, ds.requests[2], "offset=200")
}

func TestFetchAllStopsAtTotalCount(t *testing.T) {
	ds := &fakeDataset{total: 120}
	c := newTestClient(t, ds, Options{PageSize: 50, MaxListings: 2000})

	listings, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 120)
	assert.Len(t, ds.requests, 3)
	assert.NotContains(t, ds.requests[0], "refine=")
}

func TestFetchAllDropsDuplicateIDs(t *testing.T) {
	ds := &fakeDataset{total: 30, dupID: 1}
	c := newTestClient(t, ds, Options{PageSize: 10, MaxListings: 100})

	listings, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 30)

	seen := map[string]bool{}
	for _, l := range listings {
		assert.False(t, seen[l.ID.String()], "duplicate id %s", l.ID)
		seen[l.ID.String()] = true
	}
}

func TestFetchAllRetriesTransientPage(t *testing.T) {
	ds := &fakeDataset{total: 10, failures: 2}
	c := newTestClient(t, ds, Options{PageSize: 10, MaxListings: 10})

	listings, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 10)
	assert.Len(t, ds.requests, 3)
}

func TestFetchAllGivesUpAfterRetries(t *testing.T) {
	ds := &fakeDataset{total: 10, failures: 10}
	c := newTestClient(t, ds, Options{PageSize: 10, MaxListings: 10})

	_, err := c.FetchAll(context.Background())
	require.Error(t, err)
	assert.Len(t, ds.requests, 3)
}

func TestFetchAllEmptyDataset(t *testing.T) {
	ds := &fakeDataset{total: 0}
	c := newTestClient(t, ds, Options{PageSize: 10, MaxListings: 10})

	listings, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Len(t, ds.requests, 1)
}
