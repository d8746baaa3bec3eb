// Package seed imports the public PC part dataset into the product store.
//
// Each category file is fetched once, truncated to the per-category limit and
// written in chunks through a conditional insert, so re-running the import
// never overwrites an existing product.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Andi3172/fullstack-tic-project/pkg/catalog"
	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

// Import defaults, applied to zero Config fields.
const (
	DefaultBaseURL          = "https://raw.githubusercontent.com/docyx/pc-part-dataset/main/data/json"
	DefaultPerCategoryLimit = 500
	DefaultBatchSize        = 400
	DefaultConcurrency      = 3
	DefaultTimeout          = 30 * time.Second
)

const (
	placeholderImage = "https://placehold.co/300x300?text=%s"
	createdAtLayout  = "2006-01-02T15:04:05.000Z"
)

// Writer stores products whose id is not present yet and reports how many
// were new.
type Writer interface {
	InsertMissing(ctx context.Context, products []catalog.Product) (int64, error)
}

// Config controls the import. Zero values take the defaults above and
// catalog.Categories.
type Config struct {
	BaseURL          string
	Categories       []string
	PerCategoryLimit int
	BatchSize        int
	Concurrency      int
	Timeout          time.Duration
}

// CategoryReport summarizes one category.
type CategoryReport struct {
	Category string `json:"category"`
	Fetched  int    `json:"fetched"`
	Unnamed  int    `json:"unnamed"`
	Inserted int64  `json:"inserted"`
	Existing int64  `json:"existing"`
	Error    string `json:"error,omitempty"`
}

// Report lists category results in the configured category order.
type Report struct {
	Categories []CategoryReport `json:"categories"`
}

// Inserted sums new products over all categories.
func (r *Report) Inserted() int64 {
	var n int64
	for _, c := range r.Categories {
		n += c.Inserted
	}
	return n
}

// Failed returns the categories that could not be imported.
func (r *Report) Failed() []string {
	var out []string
	for _, c := range r.Categories {
		if c.Error != "" {
			out = append(out, c.Category)
		}
	}
	return out
}

// Importer fetches and writes the dataset.
type Importer struct {
	cfg    Config
	writer Writer
	client *http.Client
	log    logger.Logger
	now    func() time.Time
}

// Option customizes an Importer.
type Option func(*Importer)

// WithClock sets the source of metadata.createdAt.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

// NewImporter creates an importer writing to writer.
func NewImporter(cfg Config, writer Writer, log logger.Logger, opts ...Option) *Importer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = catalog.Categories
	}
	if cfg.PerCategoryLimit <= 0 {
		cfg.PerCategoryLimit = DefaultPerCategoryLimit
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	im := &Importer{
		cfg:    cfg,
		writer: writer,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Run imports every category. A failing category is logged and recorded in
// the report while the others continue; Run itself only fails when ctx is
// done.
func (im *Importer) Run(ctx context.Context) (*Report, error) {
	report := &Report{Categories: make([]CategoryReport, len(im.cfg.Categories))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.cfg.Concurrency)

	var mu sync.Mutex
	for i, category := range im.cfg.Categories {
		g.Go(func() error {
			result := im.importCategory(gctx, category)
			mu.Lock()
			report.Categories[i] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	im.log.Info("catalog seed complete", "inserted", report.Inserted(), "failed", len(report.Failed()))
	return report, nil
}

func (im *Importer) importCategory(ctx context.Context, category string) CategoryReport {
	result := CategoryReport{Category: category}
	log := im.log.With("category", category)

	items, err := im.fetch(ctx, category)
	if err != nil {
		log.Error("catalog seed category failed", "error", err)
		result.Error = err.Error()
		return result
	}
	if len(items) > im.cfg.PerCategoryLimit {
		items = items[:im.cfg.PerCategoryLimit]
	}
	result.Fetched = len(items)

	createdAt := im.now().UTC().Format(createdAtLayout)
	for start := 0; start < len(items); start += im.cfg.BatchSize {
		end := min(start+im.cfg.BatchSize, len(items))

		batch := make([]catalog.Product, 0, end-start)
		for _, item := range items[start:end] {
			p, ok := toProduct(item, category, createdAt)
			if !ok {
				result.Unnamed++
				continue
			}
			batch = append(batch, p)
		}
		if len(batch) == 0 {
			continue
		}

		inserted, err := im.writer.InsertMissing(ctx, batch)
		if err != nil {
			log.Error("catalog seed batch failed", "batch_start", start, "error", err)
			result.Error = err.Error()
			return result
		}
		result.Inserted += inserted
		result.Existing += int64(len(batch)) - inserted
		log.Debug("catalog seed batch written", "batch_start", start, "checked", len(batch), "inserted", inserted)
	}

	log.Info("catalog seed category done",
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"existing", result.Existing,
		"unnamed", result.Unnamed,
	)
	return result
}

func (im *Importer) fetch(ctx context.Context, category string) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/%s.json", strings.TrimRight(im.cfg.BaseURL, "/"), category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return items, nil
}

// toProduct maps a dataset item. Items without a name are rejected.
func toProduct(item map[string]any, category, createdAt string) (catalog.Product, bool) {
	name, _ := item["name"].(string)
	if name == "" {
		return catalog.Product{}, false
	}

	var price *float64
	if v, ok := item["price"].(float64); ok && v > 0 {
		price = &v
	}

	image, _ := item["image"].(string)
	if image == "" {
		image = fmt.Sprintf(placeholderImage, category)
	}

	specs := make(map[string]any, len(item))
	for k, v := range item {
		switch k {
		case "name", "price", "image":
		default:
			specs[k] = v
		}
	}

	return catalog.Product{
		ID:          Slugify(name),
		Name:        name,
		Category:    category,
		Price:       price,
		Image:       image,
		Description: name,
		Stock:       0,
		Specs:       specs,
		Metadata:    catalog.Metadata{CreatedAt: createdAt},
	}, true
}

var (
	// Unicode separators and the BOM count as whitespace, so NBSP splits words.
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	nonWord       = regexp.MustCompile(`[^\w-]+`)
	dashRun       = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a product id from its name: lowercase, whitespace runs
// become "-", other non-word characters are dropped, and repeated or edge
// dashes are removed.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = nonWord.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
