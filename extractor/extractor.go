package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"doujin-resolver/adapters"
	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Extractor resolves input items (product URLs or free-text titles) into
// reconciled rows across every storefront.
type Extractor struct {
	config *types.Config
	logger types.Logger
	client *utils.HTTPClient
}

// NewExtractor creates a new extractor. opts are passed to the shared HTTP client.
func NewExtractor(config *types.Config, logger types.Logger, opts ...utils.Option) *Extractor {
	return &Extractor{
		config: config,
		logger: logger,
		client: utils.NewHTTPClient(config, logger, opts...),
	}
}

// IsURL reports whether an input item is a product URL rather than a title query
func IsURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// Resolve processes one input item. Storefront failures only cost their own column;
// an error is returned when the item as a whole could not be resolved, possibly
// alongside a placeholder row.
func (e *Extractor) Resolve(ctx context.Context, input string) (*types.Row, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	startTime := time.Now()
	log := e.logger.WithField("item", uuid.NewString())
	log.Infof("Processing %s", input)

	// fresh sessions per item so gate cookies never leak between items
	set := adapters.NewSet(e.client, e.config, log)

	var (
		row *types.Row
		err error
	)
	if IsURL(input) {
		row, err = e.resolveURL(ctx, set, log, input)
	} else {
		row, err = e.resolveQuery(ctx, set, log, input)
	}

	log.Debugf("Item processed in %v", time.Since(startTime))
	return row, err
}

// resolveURL extracts the seed storefront, then looks the work up everywhere else
// using the seed's own metadata.
func (e *Extractor) resolveURL(ctx context.Context, set adapters.Set, log types.Logger, seedURL string) (*types.Row, error) {
	seedAdapter, ok := set.ForURL(seedURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedSeed, seedURL)
	}

	cleaned := seedURL
	if c, ok := seedAdapter.(adapters.URLCleaner); ok {
		cleaned = c.CleanURL(seedURL)
	}

	seed, err := seedAdapter.Extract(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to extract seed %s: %w", cleaned, err)
	}
	log.Infof("Seed from %s: title=%q circle=%q author=%q", seedAdapter.Site(), seed.Title, seed.Circle, seed.Author)

	queries := QueryVariants(seed)
	results := newResultSet()
	results.add(types.SiteResult{Site: seedAdapter.Site(), Location: cleaned, Record: seed})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for _, site := range Columns {
		if site == seedAdapter.Site() {
			continue
		}
		adapter, ok := set[site]
		if !ok {
			continue
		}
		g.Go(func() error {
			res := e.searchAndExtract(gctx, log, adapter, queries)
			results.add(res)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	row := e.buildRow(seedURL, seed, results)
	row.CleanedURL = cleaned
	return row, nil
}

// resolveQuery fans the title out across storefronts, seeds from the best discovered
// location and extracts the remaining discovered pages without searching again.
func (e *Extractor) resolveQuery(ctx context.Context, set adapters.Set, log types.Logger, query string) (*types.Row, error) {
	results := newResultSet()

	if err := e.searchAll(ctx, log, set, e.config.FanOutOrder, query, results); err != nil {
		return nil, err
	}
	if results.count() == 0 {
		log.Infof("Nothing found in fan-out, trying %v", e.config.LastResortSites)
	}
	// last-resort storefronts still fill their own column when the fan-out succeeded
	if err := e.searchAll(ctx, log, set, e.config.LastResortSites, query, results); err != nil {
		return nil, err
	}

	if results.count() == 0 {
		log.Warnf("No storefront found for %s", query)
		return MissRow(query), fmt.Errorf("no storefront found for %q: %w", query, types.ErrNotFound)
	}

	seed, primary := e.extractPrimary(ctx, log, set, results)
	if seed == nil {
		log.Warnf("No discovered page of %s could be extracted", query)
		seed = &types.ProductRecord{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for _, site := range results.sites() {
		if site == primary {
			continue
		}
		adapter, ok := set[site]
		if !ok {
			continue
		}
		location := results.location(site)
		site := site
		g.Go(func() error {
			record, err := adapter.Extract(gctx, location)
			if err != nil {
				logSiteError(log, site, "extraction", err)
				results.fail(site, err)
				return gctx.Err()
			}
			results.setRecord(site, record)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.buildRow(query, seed, results), nil
}

// searchAll searches sites concurrently with the same query, recording every location found
func (e *Extractor) searchAll(ctx context.Context, log types.Logger, set adapters.Set, sites []types.SiteID, query string, results *resultSet) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for _, site := range sites {
		adapter, ok := set[site]
		if !ok || results.location(site) != "" {
			continue
		}
		site := site
		g.Go(func() error {
			location, err := adapter.Search(gctx, query)
			if err != nil {
				logSiteError(log, site, "search", err)
				results.fail(site, err)
				return gctx.Err()
			}
			log.Infof("Found %s on %s: %s", query, site, location)
			results.add(types.SiteResult{Site: site, Location: location})
			return nil
		})
	}
	return g.Wait()
}

// extractPrimary extracts the first discovered location in primary order, moving on
// to the next candidate when one fails.
func (e *Extractor) extractPrimary(ctx context.Context, log types.Logger, set adapters.Set, results *resultSet) (*types.ProductRecord, types.SiteID) {
	candidates := append([]types.SiteID{}, e.config.PrimaryOrder...)
	for _, site := range results.sites() {
		if !containsSite(candidates, site) {
			candidates = append(candidates, site)
		}
	}

	for _, site := range candidates {
		location := results.location(site)
		adapter, ok := set[site]
		if location == "" || !ok {
			continue
		}
		record, err := adapter.Extract(ctx, location)
		if err != nil {
			logSiteError(log, site, "seed extraction", err)
			results.fail(site, err)
			continue
		}
		if record.IsEmpty() {
			log.Warnf("Primary page on %s yielded no fields: %s", site, location)
		}
		log.Infof("Primary storefront is %s", site)
		results.setRecord(site, record)
		return record, site
	}
	return nil, ""
}

// searchAndExtract tries the query variants in order on one storefront; the first
// variant that yields a location wins.
func (e *Extractor) searchAndExtract(ctx context.Context, log types.Logger, adapter types.SiteAdapter, queries []string) types.SiteResult {
	res := types.SiteResult{Site: adapter.Site()}
	for _, q := range queries {
		location, err := adapter.Search(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				res.Err = ctx.Err()
				return res
			}
			logSiteError(log, adapter.Site(), fmt.Sprintf("search %q", q), err)
			// a real failure on one variant outranks "no match" on a later one
			if res.Err == nil || errors.Is(res.Err, types.ErrNotFound) {
				res.Err = err
			}
			continue
		}
		res.Location = location
		res.Err = nil
		break
	}
	if res.Location == "" {
		return res
	}

	record, err := adapter.Extract(ctx, res.Location)
	if err != nil {
		logSiteError(log, adapter.Site(), "extraction", err)
		res.Err = err
		return res
	}
	if record.IsEmpty() {
		log.Warnf("%s page yielded no fields: %s", adapter.Site(), res.Location)
	}
	res.Record = record
	return res
}

// QueryVariants builds the search terms for a seed record: title, title with circle,
// title with author, circle, author. Blank and duplicate variants are dropped.
func QueryVariants(seed *types.ProductRecord) []string {
	if seed == nil {
		return nil
	}
	title := strings.TrimSpace(seed.Title)
	circle := strings.TrimSpace(seed.Circle)
	author := strings.TrimSpace(seed.Author)

	var candidates []string
	if title != "" {
		candidates = append(candidates, title)
		if circle != "" {
			candidates = append(candidates, title+" "+circle)
		}
		if author != "" {
			candidates = append(candidates, title+" "+author)
		}
	}
	candidates = append(candidates, circle, author)

	seen := make(map[string]bool)
	var out []string
	for _, q := range candidates {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

func (e *Extractor) buildRow(input string, seed *types.ProductRecord, results *resultSet) *types.Row {
	merged := Merge(seed, results.records(), e.config.MergeOrder)
	return &types.Row{
		Input:     input,
		Circle:    merged.Circle,
		Author:    merged.Author,
		Title:     merged.Title,
		Date:      NormalizeDate(merged.ReleaseDate),
		Event:     merged.EventName,
		Locations: results.locations(),
		Resolved:  true,
		Failures:  results.failures(),
	}
}

// MissRow is the placeholder row for an item no storefront knows about
func MissRow(input string) *types.Row {
	return &types.Row{
		Input:     input,
		Title:     input,
		Locations: map[types.SiteID]string{},
	}
}

func (e *Extractor) concurrency() int {
	if e.config.MaxConcurrentRequests < 1 {
		return 1
	}
	return e.config.MaxConcurrentRequests
}

// Close releases the shared HTTP client
func (e *Extractor) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

func logSiteError(log types.Logger, site types.SiteID, op string, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		log.Debugf("%s %s: no match", site, op)
	case types.IsSiteFailure(err):
		log.Warnf("%s %s failed: %v", site, op, err)
	default:
		log.Errorf("%s %s failed: %v", site, op, err)
	}
}

func containsSite(sites []types.SiteID, site types.SiteID) bool {
	for _, s := range sites {
		if s == site {
			return true
		}
	}
	return false
}

// resultSet collects per-storefront outcomes for one item. Locations discovered by
// search are stored here and reused for extraction.
type resultSet struct {
	mu      sync.Mutex
	results map[types.SiteID]types.SiteResult
	failed  map[types.SiteID]error
}

func newResultSet() *resultSet {
	return &resultSet{
		results: make(map[types.SiteID]types.SiteResult),
		failed:  make(map[types.SiteID]error),
	}
}

func (r *resultSet) add(res types.SiteResult) {
	if res.Err != nil {
		r.fail(res.Site, res.Err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !res.Found() {
		return
	}
	r.results[res.Site] = res
}

// fail records a storefront failure; "no match" and cancellation are not failures
func (r *resultSet) fail(site types.SiteID, err error) {
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[site] = err
}

// failures returns the recorded storefront failures as messages, nil when there are none
func (r *resultSet) failures() map[types.SiteID]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failed) == 0 {
		return nil
	}
	out := make(map[types.SiteID]string, len(r.failed))
	for site, err := range r.failed {
		out[site] = err.Error()
	}
	return out
}

func (r *resultSet) setRecord(site types.SiteID, record *types.ProductRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[site]
	if !ok {
		return
	}
	res.Record = record
	r.results[site] = res
	delete(r.failed, site)
}

func (r *resultSet) location(site types.SiteID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[site].Location
}

func (r *resultSet) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// sites returns the storefronts with a location, in KnownSites order
func (r *resultSet) sites() []types.SiteID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []types.SiteID
	for _, site := range types.KnownSites {
		if _, ok := r.results[site]; ok {
			out = append(out, site)
		}
	}
	return out
}

func (r *resultSet) locations() map[types.SiteID]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[types.SiteID]string, len(r.results))
	for site, res := range r.results {
		out[site] = res.Location
	}
	return out
}

func (r *resultSet) records() map[types.SiteID]*types.ProductRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[types.SiteID]*types.ProductRecord, len(r.results))
	for site, res := range r.results {
		if res.Record != nil {
			out[site] = res.Record
		}
	}
	return out
}
