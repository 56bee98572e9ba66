package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"travelcore/internal/coupons/repository"
	"travelcore/internal/coupons/validator"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
	"travelcore/pkg/conflict"
	"travelcore/pkg/db"
	"travelcore/pkg/db/memory"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/events"
	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo repository.CouponRepository) (*couponService, *events.Recorder) {
	log := logger.Discard()
	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	recorder := &events.Recorder{}
	coord := &claim.Coordinator{
		Locker:  claim.NewMemoryLocker(5 * time.Second),
		Tx:      memory.NewTransactionManager(),
		Events:  recorder,
		Metrics: claim.NewMetrics(prometheus.NewRegistry()),
		Log:     log,
	}
	s := NewCouponService(repo, validator.NewCouponValidator(log), coord, cfg).(*couponService)
	s.now = func() time.Time { return testNow }
	return s, recorder
}

func seed(t *testing.T, repo repository.CouponRepository, code string, kind model.DiscountType, value int64, maxUses int) *model.Coupon {
	t.Helper()
	c := &model.Coupon{
		Code:          code,
		DiscountType:  kind,
		DiscountValue: decimal.NewFromInt(value),
		MaxUses:       maxUses,
		ValidFrom:     testNow.AddDate(0, 0, -1),
		ValidTo:       testNow.AddDate(0, 0, 30),
		Active:        true,
	}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("seed %s: %v", code, err)
	}
	return c
}

func apply(s *couponService, code, user string, total int64) (*ApplyResult, error) {
	return s.Apply(context.Background(), ApplyRequest{
		Code:        code,
		UserID:      user,
		TotalAmount: decimal.NewFromInt(total),
	})
}

func TestApply_Discounts(t *testing.T) {
	tests := []struct {
		name         string
		kind         model.DiscountType
		value        int64
		total        int64
		wantTotal    string
		wantDiscount string
	}{
		{name: "percent", kind: model.DiscountPercent, value: 10, total: 200, wantTotal: "180", wantDiscount: "20"},
		{name: "fixed floors at zero", kind: model.DiscountFixed, value: 500, total: 300, wantTotal: "0", wantDiscount: "300"},
		{name: "fixed below total", kind: model.DiscountFixed, value: 50, total: 300, wantTotal: "250", wantDiscount: "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryCouponRepository()
			s, recorder := newTestService(repo)
			seed(t, repo, "PROMO", tt.kind, tt.value, 10)

			result, err := apply(s, "promo", "u1", tt.total)
			if err != nil {
				t.Fatalf("apply failed: %v", err)
			}
			if !result.DiscountedTotal.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("discounted total = %s, want %s", result.DiscountedTotal, tt.wantTotal)
			}
			if !result.DiscountApplied.Equal(decimal.RequireFromString(tt.wantDiscount)) {
				t.Errorf("discount = %s, want %s", result.DiscountApplied, tt.wantDiscount)
			}
			if result.DiscountedTotal.StringFixed(2) != tt.wantTotal+".00" {
				t.Errorf("unexpected formatting: %s", result.DiscountedTotal.StringFixed(2))
			}
			if len(recorder.Events()) != 1 || recorder.Events()[0].Type != events.CouponRedeemed {
				t.Errorf("expected one coupon.redeemed event, got %+v", recorder.Events())
			}
		})
	}
}

func TestApply_RoundsOnceFromExactTotal(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, _ := newTestService(repo)
	seed(t, repo, "SAVE10", model.DiscountPercent, 10, 5)

	// 10.005 - 1.0005 = 9.0045, which rounds to 9.00; rounding the
	// discount first would give 10.005 - 1.00 = 9.005 and then 9.01
	res, err := s.Apply(context.Background(), ApplyRequest{
		Code:        "SAVE10",
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString("10.005"),
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !res.DiscountedTotal.Equal(decimal.RequireFromString("9.00")) {
		t.Errorf("discounted total = %s, want 9.00", res.DiscountedTotal)
	}
	if !res.DiscountApplied.Equal(decimal.RequireFromString("1.00")) {
		t.Errorf("discount applied = %s, want 1.00", res.DiscountApplied)
	}
}

func TestApply_ConcurrentRedemptionsRespectCap(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, _ := newTestService(repo)
	c := seed(t, repo, "SAVE10", model.DiscountPercent, 10, 7)

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := apply(s, "SAVE10", fmt.Sprintf("user-%d", i), 200)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, exhausted int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case apperrors.IsRejected(err) && apperrors.ReasonOf(err) == string(conflict.ExhaustedUses):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if ok != 7 || exhausted != attempts-7 {
		t.Errorf("ok=%d exhausted=%d, want 7 and %d", ok, exhausted, attempts-7)
	}
	stored, _ := repo.FindByID(context.Background(), c.ID)
	if stored.UsedCount != 7 {
		t.Errorf("used_count = %d, want 7", stored.UsedCount)
	}
}

func TestApply_SameUserConcurrently(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, _ := newTestService(repo)
	c := seed(t, repo, "SAVE10", model.DiscountPercent, 10, 100)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := apply(s, "SAVE10", "u1", 200)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		if apperrors.ReasonOf(err) != string(conflict.AlreadyRedeemed) {
			t.Errorf("expected AlreadyRedeemed, got %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one redemption, got %d", ok)
	}
	stored, _ := repo.FindByID(context.Background(), c.ID)
	if stored.UsedCount != 1 {
		t.Errorf("used_count = %d, want 1", stored.UsedCount)
	}
}

func TestApply_SecondRedemptionAfterOthers(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, _ := newTestService(repo)
	seed(t, repo, "SAVE10", model.DiscountPercent, 10, 100)

	if _, err := apply(s, "SAVE10", "u1", 200); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}
	for _, other := range []string{"u2", "u3"} {
		if _, err := apply(s, "SAVE10", other, 200); err != nil {
			t.Fatalf("redemption for %s failed: %v", other, err)
		}
	}

	_, err := apply(s, "SAVE10", "u1", 200)
	if !apperrors.IsRejected(err) || apperrors.ReasonOf(err) != string(conflict.AlreadyRedeemed) {
		t.Errorf("expected AlreadyRedeemed rejection, got %v", err)
	}
}

func TestApply_RejectionIsIdempotent(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, recorder := newTestService(repo)

	minSpend := decimal.NewFromInt(1000)
	c := &model.Coupon{
		Code:          "BIGSPEND",
		DiscountType:  model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100),
		MinSpend:      &minSpend,
		MaxUses:       5,
		ValidFrom:     testNow.AddDate(0, 0, -1),
		ValidTo:       testNow.AddDate(0, 0, 30),
		Active:        true,
	}
	repo.Create(context.Background(), c)

	for i := 0; i < 3; i++ {
		_, err := apply(s, "BIGSPEND", "u1", 500)
		if !apperrors.IsRejected(err) || apperrors.ReasonOf(err) != string(conflict.BelowMinSpend) {
			t.Fatalf("attempt %d: expected BelowMinSpend, got %v", i, err)
		}
	}

	stored, _ := repo.FindByID(context.Background(), c.ID)
	if stored.UsedCount != 0 || stored.Version != 0 {
		t.Errorf("rejection mutated the coupon: %+v", stored)
	}
	if has, _ := repo.HasUsage(context.Background(), c.ID, "u1"); has {
		t.Error("rejection left a usage row")
	}
	if len(recorder.Events()) != 0 {
		t.Errorf("rejection published events: %+v", recorder.Events())
	}
}

func TestApply_RulePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *model.Coupon)
		want   conflict.Reason
	}{
		{name: "inactive beats window", mutate: func(c *model.Coupon) {
			c.Active = false
			c.ValidTo = testNow.Add(-time.Hour)
		}, want: conflict.Inactive},
		{name: "window beats exhausted", mutate: func(c *model.Coupon) {
			c.ValidFrom = testNow.Add(time.Hour)
			c.ValidTo = testNow.Add(2 * time.Hour)
			c.UsedCount = c.MaxUses
		}, want: conflict.OutOfWindow},
		{name: "exhausted", mutate: func(c *model.Coupon) { c.UsedCount = c.MaxUses }, want: conflict.ExhaustedUses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryCouponRepository()
			s, _ := newTestService(repo)

			c := &model.Coupon{
				Code:          "RULES",
				DiscountType:  model.DiscountPercent,
				DiscountValue: decimal.NewFromInt(10),
				MaxUses:       3,
				ValidFrom:     testNow.AddDate(0, 0, -1),
				ValidTo:       testNow.AddDate(0, 0, 1),
				Active:        true,
			}
			tt.mutate(c)
			repo.Create(context.Background(), c)

			_, err := apply(s, "RULES", "u1", 100)
			if apperrors.ReasonOf(err) != string(tt.want) {
				t.Errorf("reason = %q, want %q (err %v)", apperrors.ReasonOf(err), tt.want, err)
			}
		})
	}
}

// racingRepository simulates a writer that bypassed the lock and bumped the
// coupon between validation and commit.
type racingRepository struct {
	repository.CouponRepository
}

func (r *racingRepository) IncrementUsage(ctx context.Context, id string, version int64) (*model.Coupon, error) {
	return nil, db.ErrVersionConflict
}

func TestApply_LostRaceIsTransient(t *testing.T) {
	inner := repository.NewMemoryCouponRepository()
	s, _ := newTestService(&racingRepository{CouponRepository: inner})
	c := seed(t, inner, "SAVE10", model.DiscountPercent, 10, 5)

	_, err := apply(s, "SAVE10", "u1", 200)
	if !apperrors.IsTransient(err) {
		t.Fatalf("expected transient conflict, got %v", err)
	}
	if apperrors.ReasonOf(err) != string(conflict.ExhaustedUses) {
		t.Errorf("reason = %q, want %q", apperrors.ReasonOf(err), conflict.ExhaustedUses)
	}
	if has, _ := inner.HasUsage(context.Background(), c.ID, "u1"); has {
		t.Error("lost race left a usage row")
	}
}

func TestApply_UnknownCoupon(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryCouponRepository())

	_, err := apply(s, "NOPE", "u1", 100)
	if apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestApply_InvalidInput(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryCouponRepository())

	_, err := apply(s, "SAVE10", "", -5)
	if apperrors.AsAppError(err).Code != apperrors.CodeValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_NormalizesAndRejectsDuplicates(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, _ := newTestService(repo)

	c := &model.Coupon{
		Code:          " save10 ",
		DiscountType:  model.DiscountPercent,
		DiscountValue: decimal.NewFromInt(10),
		MaxUses:       5,
		UsedCount:     3,
		ValidFrom:     testNow,
		ValidTo:       testNow.AddDate(0, 1, 0),
		Active:        true,
	}
	if err := s.Create(context.Background(), c); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if c.Code != "SAVE10" || c.UsedCount != 0 {
		t.Errorf("expected normalized code and zero usage, got %q %d", c.Code, c.UsedCount)
	}

	dup := *c
	dup.ID = ""
	err := s.Create(context.Background(), &dup)
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("expected conflict for duplicate code, got %v", err)
	}
}

func TestListActive(t *testing.T) {
	repo := repository.NewMemoryCouponRepository()
	s, _ := newTestService(repo)
	seed(t, repo, "AAA", model.DiscountPercent, 10, 5)
	seed(t, repo, "BBB", model.DiscountPercent, 10, 5)
	expired := &model.Coupon{
		Code: "OLD", DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(5), MaxUses: 1,
		ValidFrom: testNow.AddDate(0, -2, 0), ValidTo: testNow.AddDate(0, -1, 0), Active: true,
	}
	repo.Create(context.Background(), expired)

	coupons, total, err := s.ListActive(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(coupons) != 1 {
		t.Errorf("total=%d page=%d, want 2 and 1", total, len(coupons))
	}
}
