package service

import (
	"context"
	"errors"
	"time"

	flightserrors "travelcore/internal/flights/errors"
	"travelcore/internal/flights/repository"
	"travelcore/internal/flights/validator"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
	"travelcore/pkg/conflict"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/events"
	"travelcore/pkg/model"
	"travelcore/pkg/sanitizer"
)

// Resource names used in lock keys, logs and metrics.
const (
	ScheduleResource = "schedule"
	LegResource      = "leg"
)

type ScheduleRequest struct {
	AircraftID  string `json:"aircraft_id"`
	FlightLegID string `json:"flight_leg_id,omitempty"`
	Date        string `json:"date"`
	Departure   string `json:"departure_time"`
	Arrival     string `json:"arrival_time"`
	model.StatusWire
}

type LegRequest struct {
	RouteID         string `json:"route_id"`
	StopOrder       int    `json:"stop_order"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	Departure       string `json:"departure_time"`
	Arrival         string `json:"arrival_time"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

type AircraftRequest struct {
	Active *bool `json:"active"`
}

type FlightService interface {
	CreateScheduleClaim(ctx context.Context, req ScheduleRequest) (*model.ScheduleClaim, error)
	UpdateScheduleStatus(ctx context.Context, id string, status model.StatusWire) (*model.ScheduleClaim, error)
	GetClaim(ctx context.Context, id string) (*model.ScheduleClaim, error)
	ListClaims(ctx context.Context, aircraftID, date string) ([]*model.ScheduleClaim, error)
	CreateLeg(ctx context.Context, req LegRequest) (*model.FlightLeg, error)
	ListLegs(ctx context.Context, routeID string) ([]*model.FlightLeg, error)
	SetAircraft(ctx context.Context, id string, req AircraftRequest) (*model.Aircraft, error)
}

type flightService struct {
	repo      repository.FlightRepository
	validator *validator.FlightValidator
	coord     *claim.Coordinator
	cfg       *config.Config
	now       func() time.Time
}

func NewFlightService(
	repo repository.FlightRepository,
	validator *validator.FlightValidator,
	coord *claim.Coordinator,
	cfg *config.Config,
) FlightService {
	return &flightService{
		repo:      repo,
		validator: validator,
		coord:     coord,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func aircraftKey(aircraftID, date string) string {
	return claim.Key("aircraft", aircraftID, date)
}

func routeKey(routeID string) string {
	return claim.Key("route", routeID)
}

func (s *flightService) scheduleFromRequest(req ScheduleRequest) (*model.ScheduleClaim, error) {
	req.AircraftID = sanitizer.SanitizeID(req.AircraftID)
	req.FlightLegID = sanitizer.SanitizeID(req.FlightLegID)
	req.Date = sanitizer.TrimAndNormalize(req.Date)

	if err := s.validator.ValidateSchedule(validator.ScheduleInput{
		AircraftID: req.AircraftID,
		Date:       req.Date,
		Departure:  req.Departure,
		Arrival:    req.Arrival,
	}); err != nil {
		return nil, apperrors.Validation("Schedule validation failed", map[string]any{
			"errors": err,
		})
	}

	date, _ := model.ParseDate(req.Date)
	if date.Before(model.TruncateDay(s.now())) {
		return nil, apperrors.Validation("Schedule validation failed", map[string]any{
			"errors": validator.ValidationErrors{{Field: "Date", Message: "date cannot be in the past"}},
		})
	}

	status, err := req.StatusWire.Decode()
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	dep, _ := model.ParseTimeOfDay(req.Departure)
	arr, _ := model.ParseTimeOfDay(req.Arrival)
	return &model.ScheduleClaim{
		AircraftID:  req.AircraftID,
		FlightLegID: req.FlightLegID,
		Date:        req.Date,
		Departure:   dep,
		Arrival:     arr,
		Status:      model.StatusField{ScheduleStatus: status},
	}, nil
}

// checkSchedule runs for every candidate regardless of its own status, so a
// claim can never be inserted over an occupied slot. An aircraft with no
// fleet record is schedulable.
func (s *flightService) checkSchedule(ctx context.Context, candidate *model.ScheduleClaim) (claim.Verdict, error) {
	aircraft, err := s.repo.FindAircraft(ctx, candidate.AircraftID)
	switch {
	case errors.Is(err, flightserrors.ErrAircraftNotFound):
	case err != nil:
		return claim.Verdict{}, storeError("Failed to load aircraft", err)
	case !aircraft.Active:
		return claim.Deny(conflict.AircraftInactive, "aircraft %s is not active", candidate.AircraftID), nil
	}

	existing, err := s.repo.FindClaims(ctx, candidate.AircraftID, candidate.Date)
	if err != nil {
		return claim.Verdict{}, storeError("Failed to load schedule claims", err)
	}
	if other, ok := conflict.FindScheduleOverlap(candidate, existing); ok {
		return claim.Deny(conflict.ScheduleOverlap,
			"aircraft %s is already scheduled %s-%s on %s",
			candidate.AircraftID, other.Departure, other.Arrival, candidate.Date,
		), nil
	}
	return claim.Allow(), nil
}

func (s *flightService) CreateScheduleClaim(ctx context.Context, req ScheduleRequest) (*model.ScheduleClaim, error) {
	candidate, err := s.scheduleFromRequest(req)
	if err != nil {
		return nil, err
	}

	key := aircraftKey(candidate.AircraftID, candidate.Date)
	err = s.coord.Execute(ctx, claim.Claim{
		Resource: ScheduleResource,
		Key:      key,
		Locks:    []string{key},
		Validate: func(ctx context.Context) (claim.Verdict, error) {
			return s.checkSchedule(ctx, candidate)
		},
		Commit: func(txCtx context.Context) (claim.Verdict, error) {
			v, err := s.checkSchedule(txCtx, candidate)
			if err != nil || v.Denied() {
				return v, err
			}
			if err := s.repo.CreateClaim(txCtx, candidate); err != nil {
				return claim.Verdict{}, storeError("Failed to create schedule claim", err)
			}
			return claim.Allow(), nil
		},
	})
	if err != nil {
		s.cfg.Log.Warn("Schedule claim not created",
			"aircraft_id", candidate.AircraftID,
			"date", candidate.Date,
			"departure", candidate.Departure.String(),
			"arrival", candidate.Arrival.String(),
			"reason", apperrors.ReasonOf(err),
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Schedule claim created",
		"id", candidate.ID,
		"aircraft_id", candidate.AircraftID,
		"date", candidate.Date,
	)
	s.coord.Emit(ctx, events.ScheduleClaimed, key, candidate)
	return candidate, nil
}

func (s *flightService) UpdateScheduleStatus(ctx context.Context, id string, wire model.StatusWire) (*model.ScheduleClaim, error) {
	id = sanitizer.SanitizeID(id)
	status, err := wire.Decode()
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	current, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	check := func(ctx context.Context) (claim.Verdict, error) {
		fresh, err := s.repo.FindClaimByID(ctx, id)
		if err != nil {
			return claim.Verdict{}, s.claimError(id, err)
		}
		from := fresh.Status.Kind()
		if reason := conflict.StatusChange(from, status.Kind()); reason != conflict.None {
			return claim.Deny(reason, "schedule claim %s is %s and cannot become %s", id, from, status.Kind()), nil
		}
		return claim.Allow(), nil
	}

	var updated *model.ScheduleClaim
	key := aircraftKey(current.AircraftID, current.Date)
	err = s.coord.Execute(ctx, claim.Claim{
		Resource: ScheduleResource,
		Key:      key,
		Locks:    []string{key},
		Validate: check,
		Commit: func(txCtx context.Context) (claim.Verdict, error) {
			v, err := check(txCtx)
			if err != nil || v.Denied() {
				return v, err
			}
			updated, err = s.repo.UpdateClaimStatus(txCtx, id, status)
			if err != nil {
				return claim.Verdict{}, s.claimError(id, err)
			}
			return claim.Allow(), nil
		},
	})
	if err != nil {
		s.cfg.Log.Warn("Schedule status not changed",
			"id", id,
			"status", status.Kind(),
			"reason", apperrors.ReasonOf(err),
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Schedule status changed",
		"id", id,
		"from", current.Status.Kind(),
		"to", status.Kind(),
	)
	s.coord.Emit(ctx, events.ScheduleUpdated, key, updated)
	return updated, nil
}

func (s *flightService) GetClaim(ctx context.Context, id string) (*model.ScheduleClaim, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule claim ID cannot be empty")
	}

	c, err := s.repo.FindClaimByID(ctx, id)
	if err != nil {
		return nil, s.claimError(id, err)
	}
	return c, nil
}

func (s *flightService) ListClaims(ctx context.Context, aircraftID, date string) ([]*model.ScheduleClaim, error) {
	aircraftID = sanitizer.SanitizeID(aircraftID)
	if aircraftID == "" {
		return nil, apperrors.InvalidInput("Aircraft ID cannot be empty")
	}
	if _, err := model.ParseDate(date); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	claims, err := s.repo.FindClaims(ctx, aircraftID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to list schedule claims",
			"aircraft_id", aircraftID,
			"date", date,
			"error", err,
		)
		return nil, storeError("Failed to retrieve schedule claims", err)
	}
	return claims, nil
}

func (s *flightService) checkStopOrder(ctx context.Context, leg *model.FlightLeg) (claim.Verdict, error) {
	existing, err := s.repo.FindLegs(ctx, leg.RouteID)
	if err != nil {
		return claim.Verdict{}, storeError("Failed to load flight legs", err)
	}
	if conflict.LegOrdinal(leg.ID, leg.StopOrder, existing) {
		return claim.Deny(conflict.DuplicateStopOrder, "route %s already has stop %d", leg.RouteID, leg.StopOrder), nil
	}
	return claim.Allow(), nil
}

func (s *flightService) CreateLeg(ctx context.Context, req LegRequest) (*model.FlightLeg, error) {
	in := validator.LegInput{
		RouteID:         sanitizer.SanitizeID(req.RouteID),
		StopOrder:       req.StopOrder,
		Origin:          sanitizer.SanitizeAirportCode(req.Origin),
		Destination:     sanitizer.SanitizeAirportCode(req.Destination),
		Departure:       sanitizer.TrimAndNormalize(req.Departure),
		Arrival:         sanitizer.TrimAndNormalize(req.Arrival),
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.validator.ValidateLeg(in); err != nil {
		return nil, apperrors.Validation("Flight leg validation failed", map[string]any{
			"errors": err,
		})
	}

	dep, _ := model.ParseTimeOfDay(in.Departure)
	arr, _ := model.ParseTimeOfDay(in.Arrival)
	leg := &model.FlightLeg{
		RouteID:         in.RouteID,
		StopOrder:       in.StopOrder,
		Origin:          in.Origin,
		Destination:     in.Destination,
		Departure:       dep,
		Arrival:         arr,
		DurationMinutes: int(arr - dep),
	}

	key := routeKey(leg.RouteID)
	err := s.coord.Execute(ctx, claim.Claim{
		Resource: LegResource,
		Key:      key,
		Locks:    []string{key},
		Validate: func(ctx context.Context) (claim.Verdict, error) {
			return s.checkStopOrder(ctx, leg)
		},
		Commit: func(txCtx context.Context) (claim.Verdict, error) {
			v, err := s.checkStopOrder(txCtx, leg)
			if err != nil || v.Denied() {
				return v, err
			}
			if err := s.repo.CreateLeg(txCtx, leg); err != nil {
				if errors.Is(err, flightserrors.ErrDuplicateStopOrder) {
					return claim.Deny(conflict.DuplicateStopOrder, "route %s already has stop %d", leg.RouteID, leg.StopOrder), nil
				}
				return claim.Verdict{}, storeError("Failed to create flight leg", err)
			}
			return claim.Allow(), nil
		},
	})
	if err != nil {
		s.cfg.Log.Warn("Flight leg not created",
			"route_id", leg.RouteID,
			"stop_order", leg.StopOrder,
			"reason", apperrors.ReasonOf(err),
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Flight leg created",
		"id", leg.ID,
		"route_id", leg.RouteID,
		"stop_order", leg.StopOrder,
	)
	s.coord.Emit(ctx, events.LegCreated, key, leg)
	return leg, nil
}

func (s *flightService) ListLegs(ctx context.Context, routeID string) ([]*model.FlightLeg, error) {
	routeID = sanitizer.SanitizeID(routeID)
	if routeID == "" {
		return nil, apperrors.InvalidInput("Route ID cannot be empty")
	}

	legs, err := s.repo.FindLegs(ctx, routeID)
	if err != nil {
		s.cfg.Log.Error("Failed to list flight legs",
			"route_id", routeID,
			"error", err,
		)
		return nil, storeError("Failed to retrieve flight legs", err)
	}
	return legs, nil
}

func (s *flightService) claimError(id string, err error) error {
	if errors.Is(err, flightserrors.ErrClaimNotFound) {
		return apperrors.NotFoundWithID("Schedule claim", id)
	}
	s.cfg.Log.Error("Failed to access schedule claim",
		"id", id,
		"error", err,
	)
	return storeError("Failed to retrieve schedule claim", err)
}

// storeError keeps AppErrors from the store layer and wraps anything else.
func storeError(message string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}

// SetAircraft registers an aircraft or changes whether it is active. It takes
// no claim lock; claims committed before the save are kept.
func (s *flightService) SetAircraft(ctx context.Context, id string, req AircraftRequest) (*model.Aircraft, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return nil, apperrors.InvalidInput("Aircraft ID cannot be empty")
	}
	if req.Active == nil {
		return nil, apperrors.Validation("Aircraft validation failed", map[string]any{
			"errors": validator.ValidationErrors{{Field: "Active", Message: "active is required"}},
		})
	}

	a := &model.Aircraft{ID: id, Active: *req.Active}
	if err := s.repo.SaveAircraft(ctx, a); err != nil {
		s.cfg.Log.Error("Failed to save aircraft",
			"aircraft_id", id,
			"error", err,
		)
		return nil, storeError("Failed to save aircraft", err)
	}

	s.cfg.Log.Info("Aircraft saved",
		"aircraft_id", id,
		"active", a.Active,
	)
	return a, nil
}
