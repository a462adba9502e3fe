package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Noble200/nose-sub001/internal/cache"
	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/jobs"
	"github.com/Noble200/nose-sub001/internal/ledger"
	"github.com/Noble200/nose-sub001/internal/reconcile"
	"github.com/Noble200/nose-sub001/internal/store"
)

const defaultCacheTTL = 30 * time.Second

// StockAlerter is notified when a sale leaves a product under its minimum stock.
type StockAlerter interface {
	EnqueueLowStock(ctx context.Context, payload jobs.LowStockPayload) error
}

type noopAlerter struct{}

func (noopAlerter) EnqueueLowStock(context.Context, jobs.LowStockPayload) error { return nil }

type Options struct {
	Cache    cache.DeliverableCache
	CacheTTL time.Duration
	Alerts   StockAlerter
	Logger   zerolog.Logger
	Policy   reconcile.Policy
	Now      func() time.Time
}

// Service exposes the purchase, delivery, product and expense operations over a document store.
type Service struct {
	docs     store.DocumentStore
	ledger   *ledger.Ledger
	cache    cache.DeliverableCache
	cacheTTL time.Duration
	alerts   StockAlerter
	logger   zerolog.Logger
	policy   reconcile.Policy
	now      func() time.Time
	validate *validator.Validate
	loads    singleflight.Group

	// genMu guards gens, the per-purchase invalidation counter that keeps a load which
	// raced a write from filling the cache with what it read.
	genMu sync.Mutex
	gens  map[string]uint64
}

func New(docs store.DocumentStore, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopDeliverableCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Alerts == nil {
		opts.Alerts = noopAlerter{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := func() time.Time { return opts.Now().UTC() }

	return &Service{
		docs:     docs,
		ledger:   &ledger.Ledger{Now: now},
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		alerts:   opts.Alerts,
		logger:   opts.Logger.With().Str("component", "service").Logger(),
		policy:   opts.Policy,
		now:      now,
		validate: newValidator(),
		gens:     map[string]uint64{},
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and reports failures as domain.ErrInvalidInput.
func (s *Service) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(parts, "; "))
}

func (s *Service) logActivity(ctx context.Context, action string, entityType string, entityID string, detail string) {
	if _, err := s.docs.AddDocument(ctx, domain.CollectionActivities, domain.Activity{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}); err != nil {
		s.logger.Warn().Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write activity log")
	}
}

func (s *Service) invalidateDeliverables(ctx context.Context, purchaseID string) {
	s.genMu.Lock()
	s.gens[purchaseID]++
	s.genMu.Unlock()
	s.loads.Forget(purchaseID)
	if err := s.cache.Invalidate(ctx, purchaseID); err != nil {
		s.logger.Warn().Err(err).Str("purchaseId", purchaseID).Msg("failed to invalidate deliverables cache")
	}
}

func (s *Service) generation(purchaseID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[purchaseID]
}

func decodeAll[T any](raws []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// optionalDate parses raw when present and falls back to now.
func (s *Service) optionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.now(), nil
	}
	return reconcile.ParseDate(raw)
}
