package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	couponserrors "travelcore/internal/coupons/errors"
	"travelcore/internal/coupons/repository"
	"travelcore/internal/coupons/validator"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
	"travelcore/pkg/conflict"
	"travelcore/pkg/db"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/events"
	"travelcore/pkg/model"
	"travelcore/pkg/pricing"
	"travelcore/pkg/sanitizer"

	"github.com/shopspring/decimal"
)

// Resource names coupon claims in lock keys, logs and metrics.
const Resource = "coupon"

type ApplyRequest struct {
	Code        string          `json:"code"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Now         time.Time       `json:"-"`
}

type ApplyResult struct {
	CouponCode      string          `json:"coupon_code"`
	OriginalTotal   decimal.Decimal `json:"original_total"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	UsageID         string          `json:"usage_id"`
}

// Redeemer lets another coordinator redeem a coupon as part of its own claim.
// The caller must hold LockKey(code) for the whole cycle and call Redeem
// inside its commit transaction.
type Redeemer interface {
	LockKey(code string) string
	Evaluate(ctx context.Context, req ApplyRequest) (*model.Coupon, claim.Verdict, error)
	Redeem(ctx context.Context, req ApplyRequest) (*model.CouponUsage, claim.Verdict, error)
}

type CouponService interface {
	Redeemer
	Create(ctx context.Context, c *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	ListActive(ctx context.Context, limit int, offset int64) ([]*model.Coupon, int64, error)
	Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error)
}

type couponService struct {
	repo      repository.CouponRepository
	validator *validator.CouponValidator
	coord     *claim.Coordinator
	cfg       *config.Config
	now       func() time.Time
}

func NewCouponService(
	repo repository.CouponRepository,
	validator *validator.CouponValidator,
	coord *claim.Coordinator,
	cfg *config.Config,
) CouponService {
	return &couponService{
		repo:      repo,
		validator: validator,
		coord:     coord,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *couponService) LockKey(code string) string {
	return claim.Key(Resource, sanitizer.SanitizeCouponCode(code))
}

func (s *couponService) Create(ctx context.Context, c *model.Coupon) error {
	c.Code = sanitizer.SanitizeCouponCode(c.Code)
	c.UsedCount = 0
	c.Version = 0
	c.ValidFrom = c.ValidFrom.UTC()
	c.ValidTo = c.ValidTo.UTC()

	if err := s.validator.Validate(c); err != nil {
		s.cfg.Log.Warn("Coupon validation failed",
			"code", c.Code,
			"error", err,
		)
		return apperrors.Validation("Coupon validation failed", map[string]any{
			"errors": err,
		})
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, couponserrors.ErrDuplicateCode) {
			return apperrors.Conflict(fmt.Sprintf("Coupon with code %s already exists", c.Code))
		}
		s.cfg.Log.Error("Failed to create coupon",
			"code", c.Code,
			"error", err,
		)
		return storeError("Failed to create coupon", err)
	}

	s.cfg.Log.Info("Coupon created successfully",
		"id", c.ID,
		"code", c.Code,
		"max_uses", c.MaxUses,
	)
	return nil
}

func (s *couponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	code = sanitizer.SanitizeCouponCode(code)
	if code == "" {
		return nil, apperrors.InvalidInput("Coupon code cannot be empty")
	}

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, couponserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Coupon", code)
		}
		s.cfg.Log.Error("Failed to get coupon by code",
			"code", code,
			"error", err,
		)
		return nil, storeError("Failed to retrieve coupon", err)
	}
	return c, nil
}

func (s *couponService) ListActive(ctx context.Context, limit int, offset int64) ([]*model.Coupon, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)
	now := s.now()

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var coupons []*model.Coupon
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountActive(sharedCtx, now)
		if err != nil {
			s.cfg.Log.Error("Failed to count active coupons", "error", err)
			errCount = storeError("Failed to count coupons", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		coupons, err = s.repo.FindActive(sharedCtx, now, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list active coupons",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = storeError("Failed to retrieve coupons", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return coupons, count, nil
}

func (s *couponService) normalize(req *ApplyRequest) {
	req.Code = sanitizer.SanitizeCouponCode(req.Code)
	req.UserID = sanitizer.SanitizeID(req.UserID)
	if req.Now.IsZero() {
		req.Now = s.now()
	}
}

// Evaluate loads the current coupon snapshot and runs the redemption rules.
func (s *couponService) Evaluate(ctx context.Context, req ApplyRequest) (*model.Coupon, claim.Verdict, error) {
	s.normalize(&req)

	c, err := s.repo.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, couponserrors.ErrNotFound) {
			return nil, claim.Verdict{}, apperrors.NotFoundWithID("Coupon", req.Code)
		}
		return nil, claim.Verdict{}, storeError("Failed to load coupon", err)
	}

	redeemed, err := s.repo.HasUsage(ctx, c.ID, req.UserID)
	if err != nil {
		return nil, claim.Verdict{}, storeError("Failed to check coupon usage", err)
	}

	return c, verdict(conflict.Coupon(c, redeemed, req.TotalAmount, req.Now), c, req), nil
}

// Redeem re-runs the rules on a fresh read and then applies the versioned
// increment and the usage row. It must run inside a transaction.
func (s *couponService) Redeem(ctx context.Context, req ApplyRequest) (*model.CouponUsage, claim.Verdict, error) {
	s.normalize(&req)

	c, v, err := s.Evaluate(ctx, req)
	if err != nil || v.Denied() {
		return nil, v, err
	}

	if _, err := s.repo.IncrementUsage(ctx, c.ID, c.Version); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, claim.Deny(conflict.ExhaustedUses, "coupon %s was redeemed concurrently", c.Code), nil
		}
		return nil, claim.Verdict{}, storeError("Failed to update coupon usage", err)
	}

	// each stored amount is rounded once from the exact value
	discounted, applied := pricing.CouponDiscount(c.DiscountType, c.DiscountValue, req.TotalAmount)
	usage := &model.CouponUsage{
		CouponID:        c.ID,
		CouponCode:      c.Code,
		UserID:          req.UserID,
		OriginalTotal:   pricing.Round(req.TotalAmount),
		DiscountApplied: pricing.Round(applied),
		DiscountedTotal: pricing.Round(discounted),
		UsedAt:          req.Now,
	}
	if err := s.repo.CreateUsage(ctx, usage); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, claim.Deny(conflict.AlreadyRedeemed, "user %s already redeemed %s", req.UserID, c.Code), nil
		}
		return nil, claim.Verdict{}, storeError("Failed to record coupon usage", err)
	}

	return usage, claim.Allow(), nil
}

// Apply redeems a coupon against a standalone total.
func (s *couponService) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	s.normalize(&req)

	if err := s.validator.ValidateApply(req.Code, req.UserID, req.TotalAmount); err != nil {
		return nil, apperrors.Validation("Coupon request validation failed", map[string]any{
			"errors": err,
		})
	}

	var usage *model.CouponUsage
	err := s.coord.Execute(ctx, claim.Claim{
		Resource: Resource,
		Key:      req.Code,
		Locks:    []string{s.LockKey(req.Code)},
		Validate: func(ctx context.Context) (claim.Verdict, error) {
			_, v, err := s.Evaluate(ctx, req)
			return v, err
		},
		Commit: func(txCtx context.Context) (claim.Verdict, error) {
			var v claim.Verdict
			var err error
			usage, v, err = s.Redeem(txCtx, req)
			return v, err
		},
	})
	if err != nil {
		s.cfg.Log.Warn("Coupon not applied",
			"code", req.Code,
			"user_id", req.UserID,
			"reason", apperrors.ReasonOf(err),
			"error", err,
		)
		return nil, err
	}

	s.coord.Emit(ctx, events.CouponRedeemed, req.Code, usage)

	return &ApplyResult{
		CouponCode:      usage.CouponCode,
		OriginalTotal:   usage.OriginalTotal,
		DiscountApplied: usage.DiscountApplied,
		DiscountedTotal: usage.DiscountedTotal,
		UsageID:         usage.ID,
	}, nil
}

func verdict(reason conflict.Reason, c *model.Coupon, req ApplyRequest) claim.Verdict {
	switch reason {
	case conflict.None:
		return claim.Allow()
	case conflict.Inactive:
		return claim.Deny(reason, "coupon %s is not active", c.Code)
	case conflict.OutOfWindow:
		return claim.Deny(reason, "coupon %s is valid from %s to %s", c.Code, c.ValidFrom.Format(time.RFC3339), c.ValidTo.Format(time.RFC3339))
	case conflict.ExhaustedUses:
		return claim.Deny(reason, "coupon %s has reached its usage limit of %d", c.Code, c.MaxUses)
	case conflict.AlreadyRedeemed:
		return claim.Deny(reason, "user %s already redeemed %s", req.UserID, c.Code)
	case conflict.BelowMinSpend:
		return claim.Deny(reason, "coupon %s requires a minimum spend of %s", c.Code, c.MinSpend.StringFixed(pricing.MinorUnitPlaces))
	default:
		return claim.Deny(reason, "coupon %s cannot be applied", c.Code)
	}
}

// storeError keeps AppErrors from the store layer and wraps anything else.
func storeError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}
