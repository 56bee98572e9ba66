package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	flightserrors "travelcore/internal/flights/errors"
	"travelcore/pkg/db"
	"travelcore/pkg/db/memory"
	"travelcore/pkg/model"

	"github.com/google/uuid"
)

type memoryFlightRepository struct {
	claims   *memory.Table[model.ScheduleClaim]
	legs     *memory.Table[model.FlightLeg]
	aircraft *memory.Table[model.Aircraft]
}

func NewMemoryFlightRepository() FlightRepository {
	return &memoryFlightRepository{
		claims: memory.NewTable[model.ScheduleClaim]().OrderBy(func(a, b model.ScheduleClaim) bool {
			return a.Departure < b.Departure
		}),
		legs: memory.NewTable[model.FlightLeg](func(l model.FlightLeg) string {
			return l.RouteID + "|" + strconv.Itoa(l.StopOrder)
		}).OrderBy(func(a, b model.FlightLeg) bool {
			return a.StopOrder < b.StopOrder
		}),
		aircraft: memory.NewTable[model.Aircraft](),
	}
}

func (r *memoryFlightRepository) CreateClaim(ctx context.Context, c *model.ScheduleClaim) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return r.claims.Insert(ctx, c.ID, *c)
}

func (r *memoryFlightRepository) FindClaimByID(ctx context.Context, id string) (*model.ScheduleClaim, error) {
	c, err := r.claims.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", flightserrors.ErrClaimNotFound, id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *memoryFlightRepository) FindClaims(ctx context.Context, aircraftID, date string) ([]*model.ScheduleClaim, error) {
	rows := r.claims.Find(ctx, func(c model.ScheduleClaim) bool {
		return c.AircraftID == aircraftID && c.Date == date
	})
	out := make([]*model.ScheduleClaim, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *memoryFlightRepository) UpdateClaimStatus(ctx context.Context, id string, status model.ScheduleStatus) (*model.ScheduleClaim, error) {
	c, err := r.claims.Update(ctx, id, func(c *model.ScheduleClaim) error {
		c.Status = model.StatusField{ScheduleStatus: status}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", flightserrors.ErrClaimNotFound, id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *memoryFlightRepository) CreateLeg(ctx context.Context, l *model.FlightLeg) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := r.legs.Insert(ctx, l.ID, *l); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("%w: route %s stop %d", flightserrors.ErrDuplicateStopOrder, l.RouteID, l.StopOrder)
		}
		return err
	}
	return nil
}

func (r *memoryFlightRepository) FindLegs(ctx context.Context, routeID string) ([]*model.FlightLeg, error) {
	rows := r.legs.Find(ctx, func(l model.FlightLeg) bool { return l.RouteID == routeID })
	out := make([]*model.FlightLeg, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (r *memoryFlightRepository) SaveAircraft(ctx context.Context, a *model.Aircraft) error {
	a.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.aircraft.Upsert(ctx, a.ID, *a, nil)
	return nil
}

func (r *memoryFlightRepository) FindAircraft(ctx context.Context, id string) (*model.Aircraft, error) {
	a, err := r.aircraft.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", flightserrors.ErrAircraftNotFound, id)
		}
		return nil, err
	}
	return &a, nil
}
