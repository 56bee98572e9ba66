package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"travelcore/internal/coupons/service"
	"travelcore/pkg/conflict"
	apperrors "travelcore/pkg/errors"
	httputil "travelcore/pkg/http"
	"travelcore/pkg/logger"
	"travelcore/pkg/middleware"
	"travelcore/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
)

type mockCouponService struct {
	service.CouponService
	applyFunc func(ctx context.Context, req service.ApplyRequest) (*service.ApplyResult, error)
	getFunc   func(ctx context.Context, code string) (*model.Coupon, error)
}

func (m *mockCouponService) Apply(ctx context.Context, req service.ApplyRequest) (*service.ApplyResult, error) {
	return m.applyFunc(ctx, req)
}

func (m *mockCouponService) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	return m.getFunc(ctx, code)
}

func newRouter(svc service.CouponService) *httprouter.Router {
	router := httprouter.New()
	NewCouponHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestApply_PassesCallerIdentity(t *testing.T) {
	var got service.ApplyRequest
	router := newRouter(&mockCouponService{
		applyFunc: func(ctx context.Context, req service.ApplyRequest) (*service.ApplyResult, error) {
			got = req
			return &service.ApplyResult{CouponCode: "SAVE10", DiscountedTotal: decimal.NewFromInt(180)}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/apply", strings.NewReader(`{"code":"SAVE10","total_amount":"200"}`))
	req.Header.Set(middleware.UserIDHeader, "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got.UserID != "u1" || got.Code != "SAVE10" || !got.TotalAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("unexpected request passed to service: %+v", got)
	}
}

func TestApply_MapsRejection(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{name: "rule rejection", err: apperrors.Rejected(string(conflict.ExhaustedUses), "no uses left"), wantStatus: http.StatusConflict, wantReason: "ExhaustedUses"},
		{name: "lost race", err: apperrors.Transient(string(conflict.ExhaustedUses), "retry"), wantStatus: http.StatusConflict, wantReason: "ExhaustedUses"},
		{name: "unknown coupon", err: apperrors.NotFoundWithID("Coupon", "NOPE"), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&mockCouponService{
				applyFunc: func(ctx context.Context, req service.ApplyRequest) (*service.ApplyResult, error) {
					return nil, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/apply", strings.NewReader(`{"code":"SAVE10","total_amount":200}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body httputil.ErrorResponse
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", body.Reason, tt.wantReason)
			}
		})
	}
}

func TestApply_BadBody(t *testing.T) {
	router := newRouter(&mockCouponService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/coupons/apply", strings.NewReader(`{"code":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetByCode(t *testing.T) {
	router := newRouter(&mockCouponService{
		getFunc: func(ctx context.Context, code string) (*model.Coupon, error) {
			return &model.Coupon{Code: code}, nil
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/coupons/code/SAVE10", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "SAVE10") {
		t.Errorf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}
