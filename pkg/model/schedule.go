package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type StatusKind string

const (
	StatusScheduled   StatusKind = "scheduled"
	StatusDelayed     StatusKind = "delayed"
	StatusRescheduled StatusKind = "rescheduled"
	StatusCancelled   StatusKind = "cancelled"
	StatusCompleted   StatusKind = "completed"
)

// ScheduleStatus is a closed set of variants. Each variant carries only the
// fields that mean something in that state.
type ScheduleStatus interface {
	Kind() StatusKind
	isScheduleStatus()
}

type Scheduled struct{}

type Delayed struct {
	Minutes int
}

type Rescheduled struct {
	To time.Time
}

type Cancelled struct{}

type Completed struct{}

func (Scheduled) Kind() StatusKind   { return StatusScheduled }
func (Delayed) Kind() StatusKind     { return StatusDelayed }
func (Rescheduled) Kind() StatusKind { return StatusRescheduled }
func (Cancelled) Kind() StatusKind   { return StatusCancelled }
func (Completed) Kind() StatusKind   { return StatusCompleted }

func (Scheduled) isScheduleStatus()   {}
func (Delayed) isScheduleStatus()     {}
func (Rescheduled) isScheduleStatus() {}
func (Cancelled) isScheduleStatus()   {}
func (Completed) isScheduleStatus()   {}

// StatusWire is the flat shape used on the wire and in storage.
type StatusWire struct {
	Status        StatusKind `json:"status" bson:"status"`
	DelayMinutes  *int       `json:"delay_minutes,omitempty" bson:"delay_minutes,omitempty"`
	RescheduledTo *time.Time `json:"rescheduled_to,omitempty" bson:"rescheduled_to,omitempty"`
}

var (
	ErrUnknownStatus      = errors.New("unknown schedule status")
	ErrStrayDelayMinutes  = errors.New("delay_minutes can only be set when status is delayed")
	ErrStrayRescheduledTo = errors.New("rescheduled_to can only be set when status is rescheduled")
)

// Decode turns the flat form into a variant, refusing fields that do not
// belong to the named status.
func (w StatusWire) Decode() (ScheduleStatus, error) {
	if w.DelayMinutes != nil && w.Status != StatusDelayed {
		return nil, ErrStrayDelayMinutes
	}
	if w.RescheduledTo != nil && w.Status != StatusRescheduled {
		return nil, ErrStrayRescheduledTo
	}

	switch w.Status {
	case "", StatusScheduled:
		return Scheduled{}, nil
	case StatusDelayed:
		if w.DelayMinutes == nil || *w.DelayMinutes <= 0 {
			return nil, errors.New("delayed status requires positive delay_minutes")
		}
		return Delayed{Minutes: *w.DelayMinutes}, nil
	case StatusRescheduled:
		if w.RescheduledTo == nil || w.RescheduledTo.IsZero() {
			return nil, errors.New("rescheduled status requires rescheduled_to")
		}
		return Rescheduled{To: w.RescheduledTo.UTC()}, nil
	case StatusCancelled:
		return Cancelled{}, nil
	case StatusCompleted:
		return Completed{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, w.Status)
	}
}

func EncodeStatus(s ScheduleStatus) StatusWire {
	switch v := s.(type) {
	case Delayed:
		minutes := v.Minutes
		return StatusWire{Status: StatusDelayed, DelayMinutes: &minutes}
	case Rescheduled:
		to := v.To
		return StatusWire{Status: StatusRescheduled, RescheduledTo: &to}
	case nil:
		return StatusWire{Status: StatusScheduled}
	default:
		return StatusWire{Status: s.Kind()}
	}
}

// StatusField lets a variant sit in a struct that is encoded as JSON or BSON.
type StatusField struct {
	ScheduleStatus
}

func (f StatusField) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeStatus(f.ScheduleStatus))
}

func (f *StatusField) UnmarshalJSON(b []byte) error {
	var w StatusWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	s, err := w.Decode()
	if err != nil {
		return err
	}
	f.ScheduleStatus = s
	return nil
}

func (f StatusField) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(EncodeStatus(f.ScheduleStatus))
}

func (f *StatusField) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var w StatusWire
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&w); err != nil {
		return err
	}
	s, err := w.Decode()
	if err != nil {
		return err
	}
	f.ScheduleStatus = s
	return nil
}

func (f StatusField) Kind() StatusKind {
	if f.ScheduleStatus == nil {
		return StatusScheduled
	}
	return f.ScheduleStatus.Kind()
}

// ScheduleClaim is one use of an aircraft on one date over [Departure, Arrival).
type ScheduleClaim struct {
	ID          string      `json:"id,omitempty" bson:"_id,omitempty"`
	AircraftID  string      `json:"aircraft_id" bson:"aircraft_id"`
	FlightLegID string      `json:"flight_leg_id,omitempty" bson:"flight_leg_id,omitempty"`
	Date        string      `json:"date" bson:"date"`
	Departure   TimeOfDay   `json:"departure_time" bson:"departure_time"`
	Arrival     TimeOfDay   `json:"arrival_time" bson:"arrival_time"`
	Status      StatusField `json:"status" bson:"status"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
}

// Occupies reports whether the claim still holds its aircraft slot.
func (c *ScheduleClaim) Occupies() bool {
	return c.Status.Kind() != StatusCancelled
}

// Aircraft is a fleet record. An inactive aircraft takes no new schedule
// claims; claims it already holds are left alone.
type Aircraft struct {
	ID        string    `json:"id" bson:"_id"`
	Active    bool      `json:"active" bson:"active"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// FlightLeg is one hop of a route; StopOrder is unique per route.
type FlightLeg struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	RouteID         string    `json:"route_id" bson:"route_id"`
	StopOrder       int       `json:"stop_order" bson:"stop_order"`
	Origin          string    `json:"origin" bson:"origin"`
	Destination     string    `json:"destination" bson:"destination"`
	Departure       TimeOfDay `json:"departure_time" bson:"departure_time"`
	Arrival         TimeOfDay `json:"arrival_time" bson:"arrival_time"`
	DurationMinutes int       `json:"duration_minutes" bson:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
