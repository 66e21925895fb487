// Package ledger posts sales, settlements and restocks against the product,
// sale and customer tables. Every write runs in one database transaction.
package ledger

import (
	"context"
	"strings"
	"time"

	"go-dokan-pos/internal/apperr"
	"go-dokan-pos/internal/cache"
	"go-dokan-pos/internal/database"
	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const statsKeyPrefix = "dokan:stats"

// Service is the transactional ledger writer plus its read-side queries.
type Service struct {
	db    *gorm.DB
	cache cache.Cache
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches dashboard stats. Writes invalidate the cached copy.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides the time source used for default sale dates and "today" figures.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, cache: cache.Noop{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DB exposes the handle for packages that share the ledger tables.
func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) runTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Service) today() string {
	return s.now().Format(models.DateLayout)
}

// statsKey is per day so "today" figures never outlive midnight.
func (s *Service) statsKey() string {
	return statsKeyPrefix + ":" + s.today()
}

func (s *Service) invalidateStats(ctx context.Context) {
	s.cache.Delete(ctx, s.statsKey())
}

// Reset wipes every ledger row and drops the cached stats. Accounts survive.
func (s *Service) Reset(ctx context.Context) error {
	if err := database.Reset(ctx, s.db); err != nil {
		return apperr.Storage("reset ledger", err)
	}
	s.invalidateStats(ctx)
	log.Warn().Msg("ledger reset")
	return nil
}

// saleDate validates a YYYY-MM-DD date, defaulting to today.
func (s *Service) saleDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.today(), nil
	}
	d, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return "", apperr.Validation("sale_date", "must be YYYY-MM-DD, got %q", raw)
	}
	return d.Format(models.DateLayout), nil
}

func (s *Service) since(days int) string {
	if days <= 0 {
		days = 30
	}
	return s.now().AddDate(0, 0, -days).Format(models.DateLayout)
}

func logWrite(op string) func(err error) {
	return func(err error) {
		if err != nil && apperr.Kind(err) == "storage" {
			log.Error().Err(err).Str("op", op).Msg("ledger write failed")
		}
	}
}
