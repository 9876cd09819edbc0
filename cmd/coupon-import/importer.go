package main

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bazaar-checkout/internal/domain/coupon"
)

const (
	minCodeLen = 3
	maxCodeLen = 32
)

// Upserter stores an imported coupon, replacing any coupon with the same code.
type Upserter interface {
	Upsert(ctx context.Context, c coupon.Coupon) error
}

// Config sizes the duplicate detection filters.
type Config struct {
	// Capacity is the expected number of codes per file.
	Capacity uint
	// FalsePositiveRate of each per-file bloom filter.
	FalsePositiveRate float64
}

// Stats summarizes an import run.
type Stats struct {
	Imported   int64
	Duplicates int64
	Invalid    int64
}

// Importer loads coupon definitions from gzip files. Codes defined in more
// than one file are ambiguous and are skipped.
type Importer struct {
	cfg   Config
	lg    *zap.Logger
	store Upserter
}

// NewImporter creates an Importer writing to store.
func NewImporter(cfg Config, lg *zap.Logger, store Upserter) *Importer {
	if cfg.Capacity == 0 {
		cfg.Capacity = 1_000_000
	}
	if cfg.FalsePositiveRate <= 0 {
		cfg.FalsePositiveRate = 0.001
	}
	return &Importer{cfg: cfg, lg: lg, store: store}
}

// Run imports every file. Files are scanned concurrently in three passes:
// bloom filters, duplicate confirmation, upsert.
func (im *Importer) Run(ctx context.Context, files []string) (Stats, error) {
	var stats Stats

	im.lg.Info("Pass 1: building bloom filters", zap.Int("files", len(files)))
	filters, err := im.buildFilters(ctx, files)
	if err != nil {
		return stats, errors.Wrap(err, "build filters")
	}

	im.lg.Info("Pass 2: confirming duplicate codes")
	dups, err := im.findDuplicates(ctx, files, filters)
	if err != nil {
		return stats, errors.Wrap(err, "find duplicates")
	}
	stats.Duplicates = int64(len(dups))
	im.lg.Info("Duplicate codes", zap.Int("count", len(dups)))

	im.lg.Info("Pass 3: writing coupons")
	var imported, invalid atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range files {
		g.Go(func() error {
			return scanFile(gctx, path, func(n int, line string) error {
				c, err := parseLine(line)
				if err != nil {
					if !errors.Is(err, errSkip) {
						invalid.Add(1)
						im.lg.Debug("Skipping invalid line",
							zap.String("file", path),
							zap.Int("line", n),
							zap.Error(err),
						)
					}
					return nil
				}
				if _, dup := dups[c.Code]; dup {
					return nil
				}
				if err := im.store.Upsert(gctx, c); err != nil {
					return errors.Wrapf(err, "upsert %s", c.Code)
				}
				imported.Add(1)
				return nil
			})
		})
	}
	err = g.Wait()
	stats.Imported = imported.Load()
	stats.Invalid = invalid.Load()
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (im *Importer) buildFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f := bloom.NewWithEstimates(im.cfg.Capacity, im.cfg.FalsePositiveRate)
			if err := scanFile(ctx, path, func(_ int, line string) error {
				if code, ok := codeOf(line); ok {
					f.AddString(code)
				}
				return nil
			}); err != nil {
				return err
			}
			filters[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findDuplicates collects, per file, the codes that another file's filter
// may contain, then keeps those actually seen in two or more files.
func (im *Importer) findDuplicates(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	candidates := make([]map[string]struct{}, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			seen := make(map[string]struct{})
			if err := scanFile(ctx, path, func(_ int, line string) error {
				code, ok := codeOf(line)
				if !ok {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						seen[code] = struct{}{}
						break
					}
				}
				return nil
			}); err != nil {
				return err
			}
			candidates[i] = seen
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, seen := range candidates {
		for code := range seen {
			counts[code]++
		}
	}
	dups := make(map[string]struct{})
	for code, n := range counts {
		if n >= 2 {
			dups[code] = struct{}{}
		}
	}
	return dups, nil
}

// scanFile calls fn for every line of the gzip file at path with its 1-based
// line number.
func scanFile(ctx context.Context, path string, fn func(n int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	n := 0
	for scanner.Scan() {
		n++
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(n, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return ctx.Err()
}

var errSkip = errors.New("blank or comment line")

// codeOf extracts the normalized code of a data line.
func codeOf(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	code, _, _ := strings.Cut(line, ",")
	code = strings.ToUpper(strings.TrimSpace(code))
	return code, validCode(code)
}

func validCode(code string) bool {
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// parseLine parses "CODE,TYPE,VALUE[,MAX_USES]". Blank and comment lines
// return errSkip.
func parseLine(line string) (coupon.Coupon, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return coupon.Coupon{}, errSkip
	}
	fields := strings.Split(line, ",")
	if len(fields) < 3 || len(fields) > 4 {
		return coupon.Coupon{}, errors.Errorf("want 3 or 4 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	code := strings.ToUpper(fields[0])
	if !validCode(code) {
		return coupon.Coupon{}, errors.Errorf("invalid code %q", fields[0])
	}
	typ := coupon.DiscountType(strings.ToLower(fields[1]))
	if !typ.Valid() {
		return coupon.Coupon{}, errors.Errorf("unknown discount type %q", fields[1])
	}
	value, err := decimal.NewFromString(fields[2])
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "value")
	}
	if !value.IsPositive() {
		return coupon.Coupon{}, errors.New("value must be positive")
	}
	if typ == coupon.DiscountPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return coupon.Coupon{}, errors.New("percentage above 100")
	}

	var maxUses int
	if len(fields) == 4 && fields[3] != "" {
		maxUses, err = strconv.Atoi(fields[3])
		if err != nil || maxUses < 0 {
			return coupon.Coupon{}, errors.Errorf("invalid max uses %q", fields[3])
		}
	}

	return coupon.Coupon{
		ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte("coupon:"+code)).String(),
		Code:         code,
		DiscountType: typ,
		Value:        value,
		MaxUses:      maxUses,
		Description:  describe(typ, value),
		Active:       true,
	}, nil
}

func describe(typ coupon.DiscountType, value decimal.Decimal) string {
	if typ == coupon.DiscountPercentage {
		return value.String() + "% off"
	}
	return value.StringFixed(2) + " off"
}
