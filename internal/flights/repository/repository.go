package repository

import (
	"context"

	"travelcore/pkg/model"
)

const (
	ClaimCollection       = "schedule_claims"
	AircraftDayCollection = "aircraft_days"
	LegCollection         = "flight_legs"
	AircraftCollection    = "aircraft"
)

// FlightRepository stores schedule claims and route legs.
//
// CreateClaim also bumps the per-aircraft-day revision so two transactions
// inserting claims for the same aircraft and date write the same document
// and cannot both commit. CreateLeg returns
// flightserrors.ErrDuplicateStopOrder when (route_id, stop_order) is taken.
// FindAircraft returns flightserrors.ErrAircraftNotFound for an aircraft
// with no fleet record.
type FlightRepository interface {
	CreateClaim(ctx context.Context, c *model.ScheduleClaim) error
	FindClaimByID(ctx context.Context, id string) (*model.ScheduleClaim, error)
	FindClaims(ctx context.Context, aircraftID, date string) ([]*model.ScheduleClaim, error)
	UpdateClaimStatus(ctx context.Context, id string, status model.ScheduleStatus) (*model.ScheduleClaim, error)
	CreateLeg(ctx context.Context, l *model.FlightLeg) error
	FindLegs(ctx context.Context, routeID string) ([]*model.FlightLeg, error)
	SaveAircraft(ctx context.Context, a *model.Aircraft) error
	FindAircraft(ctx context.Context, id string) (*model.Aircraft, error)
}
