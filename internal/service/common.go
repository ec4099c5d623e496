package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/edutech-api/internal/models"
	appErrors "github.com/noah-isme/edutech-api/pkg/errors"
)

const (
	dateLayout         = "2006-01-02"
	reportCachePattern = "reports:*"
)

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// Dependencies bundles the collaborators shared by every entity service.
type Dependencies struct {
	Validator *validator.Validate
	Logger    *zap.Logger
	Cache     cacheInvalidator
	Metrics   *MetricsService
	Now       func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Validator == nil {
		d.Validator = NewValidator()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// mutated logs a successful write, counts it and drops cached reports.
func (d Dependencies) mutated(ctx context.Context, entity, op, id string) {
	d.Logger.Info("entity mutated", zap.String("entity", entity), zap.String("op", op), zap.String("id", id))
	d.Metrics.RecordMutation(entity, op)
	if d.Cache != nil {
		if err := d.Cache.Invalidate(ctx, reportCachePattern); err != nil {
			d.Logger.Warn("report cache invalidation failed", zap.String("entity", entity), zap.String("id", id), zap.Error(err))
		}
	}
}

// mapRepoErr converts a repository error: missing target rows become
// NotFound, typed domain errors pass through, anything else is Internal.
func mapRepoErr(err error, entity, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+op+" "+entity)
}

func paginationFor(page, size, total int) *models.Pagination {
	page, size = models.Normalize(page, size)
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

// parseDate parses a YYYY-MM-DD string already checked by the validator.
func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.OnField(appErrors.ErrValidation, field, field+" must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseDate(field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// checkMoney enforces a non-negative amount with at most two decimals.
func checkMoney(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return appErrors.OnField(appErrors.ErrValidation, field, field+" must not be negative")
	}
	if !amount.Equal(amount.Round(2)) {
		return appErrors.OnField(appErrors.ErrValidation, field, field+" must have at most two decimal places")
	}
	return nil
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
