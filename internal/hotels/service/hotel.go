package service

import (
	"context"
	"errors"
	"time"

	couponservice "travelcore/internal/coupons/service"
	hotelserrors "travelcore/internal/hotels/errors"
	"travelcore/internal/hotels/repository"
	"travelcore/internal/hotels/validator"
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

// Resource names used in lock keys, logs and metrics.
const (
	RoomResource         = "room"
	AvailabilityResource = "availability"
)

type BookingRequest struct {
	RoomTypeID string `json:"room_type_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Rooms      int    `json:"rooms"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	UserID     string `json:"user_id,omitempty"`
	CouponCode string `json:"coupon_code,omitempty"`
}

type AvailabilityRequest struct {
	RoomTypeID         string          `json:"room_type_id"`
	Date               string          `json:"date"`
	AvailableRooms     int             `json:"available_rooms"`
	BlockedRooms       int             `json:"blocked_rooms"`
	PricePerNight      decimal.Decimal `json:"price_per_night"`
	WeekendSurcharge   decimal.Decimal `json:"weekend_surcharge"`
	SeasonalSurcharge  decimal.Decimal `json:"seasonal_surcharge"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TaxPercentage      decimal.Decimal `json:"tax_percentage"`
	IsAvailable        *bool           `json:"is_available,omitempty"`
	MinStayNights      int             `json:"min_stay_nights,omitempty"`
}

// QuoteResult is a priced stay that has not been committed.
type QuoteResult struct {
	RoomTypeID  string             `json:"room_type_id"`
	CheckIn     string             `json:"check_in"`
	CheckOut    string             `json:"check_out"`
	Nights      int                `json:"total_nights"`
	Rooms       int                `json:"total_rooms"`
	Nightly     []model.NightPrice `json:"nightly"`
	ExtraGuests decimal.Decimal    `json:"extra_guest_charges"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	Tax         decimal.Decimal    `json:"tax"`
	CouponCode  string             `json:"coupon_code,omitempty"`
	Discount    decimal.Decimal    `json:"discount"`
	FinalTotal  decimal.Decimal    `json:"final_total"`
	Currency    string             `json:"currency"`
}

type HotelService interface {
	CreateRoomType(ctx context.Context, rt *model.RoomType) error
	GetRoomType(ctx context.Context, id string) (*model.RoomType, error)
	UpsertAvailability(ctx context.Context, req AvailabilityRequest) (*model.RoomAvailability, error)
	QuoteRooms(ctx context.Context, req BookingRequest) (*QuoteResult, error)
	BookRooms(ctx context.Context, req BookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
}

type hotelService struct {
	repo      repository.HotelRepository
	coupons   couponservice.Redeemer
	validator *validator.HotelValidator
	coord     *claim.Coordinator
	cfg       *config.Config
	now       func() time.Time
}

// NewHotelService wires the room coordinator. coupons may be nil, in which
// case requests that name a coupon are refused.
func NewHotelService(
	repo repository.HotelRepository,
	coupons couponservice.Redeemer,
	validator *validator.HotelValidator,
	coord *claim.Coordinator,
	cfg *config.Config,
) HotelService {
	return &hotelService{
		repo:      repo,
		coupons:   coupons,
		validator: validator,
		coord:     coord,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func nightKey(roomTypeID string, night time.Time) string {
	return claim.Key(RoomResource, roomTypeID, night.Format(model.DateLayout))
}

func (s *hotelService) CreateRoomType(ctx context.Context, rt *model.RoomType) error {
	rt.HotelID = sanitizer.SanitizeID(rt.HotelID)
	rt.Name = sanitizer.SanitizeName(rt.Name)

	if err := s.validator.ValidateRoomType(rt); err != nil {
		s.cfg.Log.Warn("Room type validation failed",
			"hotel_id", rt.HotelID,
			"name", rt.Name,
			"error", err,
		)
		return apperrors.Validation("Room type validation failed", map[string]any{
			"errors": err,
		})
	}

	if err := s.repo.CreateRoomType(ctx, rt); err != nil {
		s.cfg.Log.Error("Failed to create room type",
			"hotel_id", rt.HotelID,
			"error", err,
		)
		return storeError("Failed to create room type", err)
	}

	s.cfg.Log.Info("Room type created successfully",
		"id", rt.ID,
		"hotel_id", rt.HotelID,
		"name", rt.Name,
	)
	return nil
}

func (s *hotelService) GetRoomType(ctx context.Context, id string) (*model.RoomType, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Room type ID cannot be empty")
	}

	rt, err := s.repo.FindRoomType(ctx, id)
	if err != nil {
		return nil, s.roomTypeError(id, err)
	}
	return rt, nil
}

func (s *hotelService) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	b, err := s.repo.FindBooking(ctx, id)
	if err != nil {
		if errors.Is(err, hotelserrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to get booking", "id", id, "error", err)
		return nil, storeError("Failed to retrieve booking", err)
	}
	return b, nil
}

// UpsertAvailability writes the rate card for one night under the same key
// bookings lock, so a booking never prices against a half-updated record.
func (s *hotelService) UpsertAvailability(ctx context.Context, req AvailabilityRequest) (*model.RoomAvailability, error) {
	req.RoomTypeID = sanitizer.SanitizeID(req.RoomTypeID)
	date, err := model.ParseDate(sanitizer.TrimAndNormalize(req.Date))
	if err != nil {
		return nil, apperrors.Validation("Availability validation failed", map[string]any{
			"errors": validator.ValidationErrors{{Field: "Date", Message: err.Error()}},
		})
	}

	a := &model.RoomAvailability{
		RoomTypeID:         req.RoomTypeID,
		Date:               date,
		AvailableRooms:     req.AvailableRooms,
		BlockedRooms:       req.BlockedRooms,
		PricePerNight:      req.PricePerNight,
		WeekendSurcharge:   req.WeekendSurcharge,
		SeasonalSurcharge:  req.SeasonalSurcharge,
		DiscountPercentage: req.DiscountPercentage,
		TaxPercentage:      req.TaxPercentage,
		IsAvailable:        req.IsAvailable == nil || *req.IsAvailable,
		MinStayNights:      max(req.MinStayNights, 1),
	}
	if err := s.validator.ValidateAvailability(a); err != nil {
		return nil, apperrors.Validation("Availability validation failed", map[string]any{
			"errors": err,
		})
	}

	var stored *model.RoomAvailability
	key := nightKey(a.RoomTypeID, a.Date)
	err = s.coord.Execute(ctx, claim.Claim{
		Resource: AvailabilityResource,
		Key:      key,
		Locks:    []string{key},
		Validate: func(ctx context.Context) (claim.Verdict, error) {
			if _, err := s.repo.FindRoomType(ctx, a.RoomTypeID); err != nil {
				return claim.Verdict{}, s.roomTypeError(a.RoomTypeID, err)
			}
			return claim.Allow(), nil
		},
		Commit: func(txCtx context.Context) (claim.Verdict, error) {
			var err error
			stored, err = s.repo.UpsertAvailability(txCtx, a)
			if err != nil {
				return claim.Verdict{}, storeError("Failed to store availability", err)
			}
			return claim.Allow(), nil
		},
	})
	if err != nil {
		s.cfg.Log.Warn("Availability not stored",
			"room_type_id", a.RoomTypeID,
			"date", req.Date,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Availability stored",
		"room_type_id", stored.RoomTypeID,
		"date", stored.Date.Format(model.DateLayout),
		"available_rooms", stored.AvailableRooms,
		"version", stored.Version,
	)
	return stored, nil
}

type stay struct {
	req      BookingRequest
	checkIn  time.Time
	checkOut time.Time
	nights   []time.Time
	now      time.Time
}

func (s *hotelService) newStay(req BookingRequest) (*stay, error) {
	req.RoomTypeID = sanitizer.SanitizeID(req.RoomTypeID)
	req.UserID = sanitizer.SanitizeID(req.UserID)
	req.CouponCode = sanitizer.SanitizeCouponCode(req.CouponCode)
	req.CheckIn = sanitizer.TrimAndNormalize(req.CheckIn)
	req.CheckOut = sanitizer.TrimAndNormalize(req.CheckOut)

	if err := s.validator.ValidateStay(validator.StayInput{
		RoomTypeID: req.RoomTypeID,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Rooms:      req.Rooms,
		Adults:     req.Adults,
		Children:   req.Children,
		UserID:     req.UserID,
		CouponCode: req.CouponCode,
	}); err != nil {
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"errors": err,
		})
	}

	now := s.now()
	checkIn, _ := model.ParseDate(req.CheckIn)
	checkOut, _ := model.ParseDate(req.CheckOut)
	if checkIn.Before(model.TruncateDay(now)) {
		return nil, apperrors.Validation("Booking validation failed", map[string]any{
			"errors": validator.ValidationErrors{{Field: "CheckIn", Message: "check_in cannot be in the past"}},
		})
	}
	if req.CouponCode != "" && s.coupons == nil {
		return nil, apperrors.InvalidInput("Coupons are not available for bookings")
	}

	return &stay{
		req:      req,
		checkIn:  checkIn,
		checkOut: checkOut,
		nights:   model.Nights(checkIn, checkOut),
		now:      now,
	}, nil
}

func (st *stay) couponRequest(total decimal.Decimal) couponservice.ApplyRequest {
	return couponservice.ApplyRequest{
		Code:        st.req.CouponCode,
		UserID:      st.req.UserID,
		TotalAmount: total,
		Now:         st.now,
	}
}

type evaluation struct {
	roomType *model.RoomType
	records  []*model.RoomAvailability
	coupon   *model.Coupon
	quote    pricing.Quote
}

// evaluate reads the room type, every night and the coupon, runs the rules
// and prices the stay. Occupancy is checked before inventory, and the coupon
// is checked last against the pre-coupon total.
func (s *hotelService) evaluate(ctx context.Context, st *stay) (*evaluation, claim.Verdict, error) {
	req := st.req

	rt, err := s.repo.FindRoomType(ctx, req.RoomTypeID)
	if err != nil {
		return nil, claim.Verdict{}, s.roomTypeError(req.RoomTypeID, err)
	}
	if !rt.Active {
		return nil, claim.Deny(conflict.RoomUnavailable, "room type %s is not bookable", rt.ID), nil
	}
	if conflict.OverOccupied(rt, req.Rooms, req.Adults, req.Children) {
		return nil, claim.Deny(conflict.OccupancyExceeded,
			"%d adults and %d children do not fit in %d %s room(s)", req.Adults, req.Children, req.Rooms, rt.Name,
		), nil
	}

	records, err := s.repo.FindAvailability(ctx, req.RoomTypeID, st.checkIn, st.checkOut)
	if err != nil {
		return nil, claim.Verdict{}, storeError("Failed to load availability", err)
	}
	byNight := make(map[time.Time]*model.RoomAvailability, len(records))
	for _, r := range records {
		byNight[model.TruncateDay(r.Date)] = r
	}
	if nc := conflict.RoomCapacity(byNight, st.nights, req.Rooms); nc != nil {
		return nil, nightVerdict(nc, req.Rooms, byNight[nc.Date]), nil
	}

	ordered := make([]*model.RoomAvailability, len(st.nights))
	for i, night := range st.nights {
		ordered[i] = byNight[night]
	}

	ev := &evaluation{
		roomType: rt,
		records:  ordered,
		quote:    pricing.Booking(ordered, rt, req.Rooms, req.Adults, req.Children, nil),
	}

	if req.CouponCode != "" {
		c, v, err := s.coupons.Evaluate(ctx, st.couponRequest(ev.quote.Gross))
		if err != nil || v.Denied() {
			return nil, v, err
		}
		ev.coupon = c
		ev.quote = pricing.Booking(ordered, rt, req.Rooms, req.Adults, req.Children, &pricing.Coupon{
			Code:  c.Code,
			Kind:  c.DiscountType,
			Value: c.DiscountValue,
		})
	}

	return ev, claim.Allow(), nil
}

func nightVerdict(nc *conflict.NightConflict, rooms int, r *model.RoomAvailability) claim.Verdict {
	date := nc.Date.Format(model.DateLayout)
	switch nc.Reason {
	case conflict.MissingAvailability:
		return claim.Deny(nc.Reason, "no availability is published for %s", date)
	case conflict.RoomUnavailable:
		return claim.Deny(nc.Reason, "rooms are closed for sale on %s", date)
	case conflict.BelowMinStay:
		return claim.Deny(nc.Reason, "stays including %s require at least %d nights", date, r.MinStayNights)
	case conflict.InsufficientInventory:
		return claim.Deny(nc.Reason, "only %d room(s) left on %s, %d requested", r.Sellable(), date, rooms)
	default:
		return claim.Deny(nc.Reason, "rooms cannot be booked on %s", date)
	}
}

func (s *hotelService) quoteResult(st *stay, ev *evaluation) *QuoteResult {
	q := ev.quote
	result := &QuoteResult{
		RoomTypeID:  st.req.RoomTypeID,
		CheckIn:     st.req.CheckIn,
		CheckOut:    st.req.CheckOut,
		Nights:      len(st.nights),
		Rooms:       st.req.Rooms,
		Nightly:     q.Nightly,
		ExtraGuests: q.ExtraGuests,
		Subtotal:    q.Subtotal,
		Tax:         q.Tax,
		Discount:    q.Discount,
		FinalTotal:  q.FinalTotal,
		Currency:    s.cfg.Currency,
	}
	if ev.coupon != nil {
		result.CouponCode = ev.coupon.Code
	}
	return result
}

// QuoteRooms prices a stay with the same rules BookRooms applies, without
// taking locks or writing anything.
func (s *hotelService) QuoteRooms(ctx context.Context, req BookingRequest) (*QuoteResult, error) {
	st, err := s.newStay(req)
	if err != nil {
		return nil, err
	}

	ev, v, err := s.evaluate(ctx, st)
	if err != nil {
		return nil, err
	}
	if v.Denied() {
		return nil, apperrors.Rejected(string(v.Reason), v.Message)
	}
	return s.quoteResult(st, ev), nil
}

func (s *hotelService) BookRooms(ctx context.Context, req BookingRequest) (*model.Booking, error) {
	st, err := s.newStay(req)
	if err != nil {
		return nil, err
	}
	req = st.req

	locks := make([]string, 0, len(st.nights)+1)
	for _, night := range st.nights {
		locks = append(locks, nightKey(req.RoomTypeID, night))
	}
	if req.CouponCode != "" {
		locks = append(locks, s.coupons.LockKey(req.CouponCode))
	}

	var booking *model.Booking
	err = s.coord.Execute(ctx, claim.Claim{
		Resource: RoomResource,
		Key:      claim.Key(req.RoomTypeID, req.CheckIn, req.CheckOut),
		Locks:    locks,
		Validate: func(ctx context.Context) (claim.Verdict, error) {
			_, v, err := s.evaluate(ctx, st)
			return v, err
		},
		Commit: func(txCtx context.Context) (claim.Verdict, error) {
			ev, v, err := s.evaluate(txCtx, st)
			if err != nil || v.Denied() {
				return v, err
			}

			for _, r := range ev.records {
				if _, err := s.repo.DecrementRooms(txCtx, r.ID, r.Version, req.Rooms); err != nil {
					if errors.Is(err, db.ErrVersionConflict) {
						return claim.Deny(conflict.InsufficientInventory,
							"rooms on %s were taken concurrently", r.Date.Format(model.DateLayout),
						), nil
					}
					return claim.Verdict{}, storeError("Failed to update availability", err)
				}
			}

			if ev.coupon != nil {
				if _, v, err := s.coupons.Redeem(txCtx, st.couponRequest(ev.quote.Gross)); err != nil || v.Denied() {
					return v, err
				}
			}

			booking = s.newBooking(st, ev)
			if err := s.repo.CreateBooking(txCtx, booking); err != nil {
				return claim.Verdict{}, storeError("Failed to create booking", err)
			}
			return claim.Allow(), nil
		},
	})
	if err != nil {
		s.cfg.Log.Warn("Rooms not booked",
			"room_type_id", req.RoomTypeID,
			"check_in", req.CheckIn,
			"check_out", req.CheckOut,
			"rooms", req.Rooms,
			"coupon_code", req.CouponCode,
			"reason", apperrors.ReasonOf(err),
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Rooms booked",
		"id", booking.ID,
		"room_type_id", booking.RoomTypeID,
		"nights", booking.Nights,
		"rooms", booking.Rooms,
		"final_total", booking.FinalTotal.StringFixed(pricing.MinorUnitPlaces),
	)
	s.coord.Emit(ctx, events.RoomsBooked, claim.Key(RoomResource, booking.RoomTypeID), booking)
	return booking, nil
}

func (s *hotelService) newBooking(st *stay, ev *evaluation) *model.Booking {
	q := ev.quote
	b := &model.Booking{
		RoomTypeID:  st.req.RoomTypeID,
		UserID:      st.req.UserID,
		CheckIn:     st.checkIn,
		CheckOut:    st.checkOut,
		Nights:      len(st.nights),
		Rooms:       st.req.Rooms,
		Adults:      st.req.Adults,
		Children:    st.req.Children,
		Nightly:     q.Nightly,
		ExtraGuests: q.ExtraGuests,
		Subtotal:    q.Subtotal,
		Tax:         q.Tax,
		Discount:    q.Discount,
		FinalTotal:  q.FinalTotal,
		Currency:    s.cfg.Currency,
		Status:      model.BookingConfirmed,
	}
	if ev.coupon != nil {
		b.CouponCode = ev.coupon.Code
	}
	return b
}

func (s *hotelService) roomTypeError(id string, err error) error {
	if errors.Is(err, hotelserrors.ErrRoomTypeNotFound) {
		return apperrors.NotFoundWithID("Room type", id)
	}
	s.cfg.Log.Error("Failed to get room type",
		"id", id,
		"error", err,
	)
	return storeError("Failed to retrieve room type", err)
}

// storeError keeps AppErrors from the store layer and wraps anything else.
func storeError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}
