package handler

import (
	"net/http"

	"travelcore/internal/coupons/service"
	httputil "travelcore/pkg/http"
	"travelcore/pkg/logger"
	"travelcore/pkg/middleware"
	"travelcore/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
)

type CouponHandler struct {
	service service.CouponService
	log     *logger.Logger
}

func NewCouponHandler(service service.CouponService, log *logger.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		log:     log,
	}
}

type applyCouponRequest struct {
	Code        string          `json:"code"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (h *CouponHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CouponHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c model.Coupon
	if err := httputil.DecodeJSON(r, &c); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &c); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, c); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *CouponHandler) GetByCode(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	c, err := h.service.GetByCode(r.Context(), ps.ByName("code"))
	if err != nil {
		h.writeError(w, "GetByCode", err)
		return
	}

	if err := httputil.WriteSuccess(w, c); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByCode", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CouponHandler) ListActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListActive", err)
		return
	}

	coupons, totalCount, err := h.service.ListActive(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListActive", err)
		return
	}

	if err := httputil.WritePaginated(w, coupons, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListActive", "operation", "WritePaginated", "error", err)
	}
}

// Apply redeems a coupon for the caller named in the X-User-ID header.
func (h *CouponHandler) Apply(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req applyCouponRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Apply", err)
		return
	}

	result, err := h.service.Apply(r.Context(), service.ApplyRequest{
		Code:        req.Code,
		UserID:      r.Header.Get(middleware.UserIDHeader),
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		h.writeError(w, "Apply", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Apply", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CouponHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/coupons", h.Create)
	router.GET("/api/v1/coupons", h.ListActive)
	router.POST("/api/v1/coupons/apply", h.Apply)
	router.GET("/api/v1/coupons/code/:code", h.GetByCode)
}
