package scraper

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shuleranks/necta-cli/internal/model"
	"github.com/shuleranks/necta-cli/internal/store"
)

// Fetcher fetches one URL; the HTTP client satisfies it and tests
// substitute doubles.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Options configures one crawl.
type Options struct {
	BaseURL string
	Exam    model.ExamType
	Year    int
	// MaxSchools caps successfully processed schools; 0 means
	// unlimited. The cap is checked before each unit of work at every
	// level and short-circuits remaining siblings once reached.
	MaxSchools int
	// Concurrency is the number of school pages processed in parallel
	// within a district; 1 reproduces the historical sequential crawl.
	Concurrency int
	Verbose     bool
}

// Summary is the outcome of a crawl run.
type Summary struct {
	Processed int
	Skipped   int
	Results   []store.SchoolResult
}

// Crawler walks the region -> district -> school directory for one
// exam sitting, persisting every successfully parsed school. Fetch and
// parse failures on a school node are skips, never fatal; only
// precondition failures (unreachable index, zero region links) abort
// the run.
type Crawler struct {
	fetch   Fetcher
	repo    store.Repository
	opts    Options
	exam    model.ExamType
	year    int
	verbose bool

	// processed counts successful schools; slots are reserved with a
	// CAS against the cap so parallel workers can never start a school
	// beyond it. A failed school releases its slot.
	reserved  atomic.Int64
	processed atomic.Int64
	skipped   atomic.Int64

	mu      sync.Mutex
	results []store.SchoolResult
}

// New creates a Crawler.
func New(fetch Fetcher, repo store.Repository, opts Options) *Crawler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Crawler{
		fetch:   fetch,
		repo:    repo,
		opts:    opts,
		exam:    opts.Exam,
		year:    opts.Year,
		verbose: opts.Verbose,
	}
}

// indexURL returns the directory entry point for the sitting. PSLE
// publishes under psle/psle.htm, the secondary exams under index.htm.
func (c *Crawler) indexURL() string {
	if c.exam == model.ExamPSLE {
		return fmt.Sprintf("%s%d/psle/psle.htm", c.opts.BaseURL, c.year)
	}
	return fmt.Sprintf("%s%d/%s/index.htm", c.opts.BaseURL, c.year, strings.ToLower(string(c.exam)))
}

// Run executes the crawl and returns the summary. The returned error
// is non-nil only for fatal preconditions; per-school failures are
// reported through Summary.Skipped.
func (c *Crawler) Run(ctx context.Context) (*Summary, error) {
	indexURL := c.indexURL()
	zap.L().Info("fetching index", zap.String("url", indexURL))

	body, err := c.fetch.Get(ctx, indexURL)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: fetch index page")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "crawler: parse index page")
	}

	regions := DiscoverLinks(doc, indexURL, isRegionHref)
	if len(regions) == 0 {
		return nil, eris.New("crawler: no regional links found on index page")
	}
	zap.L().Info("found regional directories", zap.Int("count", len(regions)))

	for _, regionLink := range regions {
		if c.capReached() {
			break
		}
		c.crawlRegion(ctx, regionLink)
	}

	summary := &Summary{
		Processed: int(c.processed.Load()),
		Skipped:   int(c.skipped.Load()),
		Results:   c.results,
	}
	zap.L().Info("scraping finished",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (c *Crawler) crawlRegion(ctx context.Context, regionLink Link) {
	regionName := CanonicalLocationCase(CleanLocationName(regionLink.Text))
	zap.L().Info("processing region", zap.String("region", regionName))

	districts := c.childLinks(ctx, regionLink.URL, isDistrictHref)
	zap.L().Info("found districts",
		zap.String("region", regionName),
		zap.Int("count", len(districts)),
	)

	for _, districtLink := range districts {
		if c.capReached() {
			return
		}
		c.crawlDistrict(ctx, districtLink, regionName)
	}
}

func (c *Crawler) crawlDistrict(ctx context.Context, districtLink Link, regionName string) {
	districtName := CanonicalLocationCase(CleanLocationName(districtLink.Text))
	zap.L().Info("processing district",
		zap.String("region", regionName),
		zap.String("district", districtName),
	)

	schools := c.childLinks(ctx, districtLink.URL, isSchoolHref)
	zap.L().Info("found schools",
		zap.String("district", districtName),
		zap.Int("count", len(schools)),
	)

	if c.opts.Concurrency <= 1 {
		for _, schoolLink := range schools {
			if !c.reserveSlot() {
				return
			}
			c.runSchool(ctx, schoolLink, regionName, districtName)
		}
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, schoolLink := range schools {
		if !c.reserveSlot() {
			break
		}
		schoolLink := schoolLink
		g.Go(func() error {
			c.runSchool(gCtx, schoolLink, regionName, districtName)
			return nil
		})
	}
	_ = g.Wait()
}

// runSchool processes one reserved school slot, releasing it on
// failure so another sibling can use it.
func (c *Crawler) runSchool(ctx context.Context, link Link, regionName, districtName string) {
	result, err := c.processSchool(ctx, link, regionName, districtName)
	if err != nil {
		c.releaseSlot()
		c.skipped.Add(1)
		zap.L().Warn("skipping school",
			zap.String("url", link.URL),
			zap.Error(err),
		)
		return
	}
	n := c.processed.Add(1)
	c.mu.Lock()
	c.results = append(c.results, *result)
	c.mu.Unlock()
	zap.L().Info("processed school",
		zap.Int64("count", n),
		zap.String("code", result.School.Code),
	)
}

// childLinks fetches a directory page and extracts its matching
// children. A failed fetch yields no children and the crawl moves on.
func (c *Crawler) childLinks(ctx context.Context, pageURL string, keep func(string) bool) []Link {
	body, err := c.fetch.Get(ctx, pageURL)
	if err != nil {
		zap.L().Warn("failed to fetch directory page",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		zap.L().Warn("failed to parse directory page",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return nil
	}
	return DiscoverLinks(doc, pageURL, keep)
}

func (c *Crawler) capReached() bool {
	return c.opts.MaxSchools > 0 && c.reserved.Load() >= int64(c.opts.MaxSchools)
}

// reserveSlot claims one unit of the processed-school cap with a
// compare-and-swap so concurrent workers cannot overshoot the cap.
func (c *Crawler) reserveSlot() bool {
	if c.opts.MaxSchools <= 0 {
		return true
	}
	for {
		cur := c.reserved.Load()
		if cur >= int64(c.opts.MaxSchools) {
			return false
		}
		if c.reserved.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (c *Crawler) releaseSlot() {
	if c.opts.MaxSchools > 0 {
		c.reserved.Add(-1)
	}
}
