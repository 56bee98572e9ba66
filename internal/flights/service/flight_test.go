package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"travelcore/internal/flights/repository"
	"travelcore/internal/flights/validator"
	"travelcore/pkg/claim"
	"travelcore/pkg/config"
	"travelcore/pkg/conflict"
	"travelcore/pkg/db/memory"
	apperrors "travelcore/pkg/errors"
	"travelcore/pkg/events"
	"travelcore/pkg/logger"
	"travelcore/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
)

var testNow = time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

const testDate = "2026-11-01"

func newTestService(repo repository.FlightRepository) (*flightService, *events.Recorder) {
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
	s := NewFlightService(repo, validator.NewFlightValidator(log), coord, cfg).(*flightService)
	s.now = func() time.Time { return testNow }
	return s, recorder
}

func schedule(aircraft, dep, arr string) ScheduleRequest {
	return ScheduleRequest{AircraftID: aircraft, Date: testDate, Departure: dep, Arrival: arr}
}

func TestCreateScheduleClaim_HalfOpenIntervals(t *testing.T) {
	tests := []struct {
		name       string
		dep, arr   string
		wantReason conflict.Reason
	}{
		{name: "touching end boundary", dep: "11:00", arr: "13:00"},
		{name: "touching start boundary", dep: "07:00", arr: "09:00"},
		{name: "partial overlap", dep: "10:00", arr: "12:00", wantReason: conflict.ScheduleOverlap},
		{name: "contained", dep: "09:30", arr: "10:30", wantReason: conflict.ScheduleOverlap},
		{name: "identical", dep: "09:00", arr: "11:00", wantReason: conflict.ScheduleOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(repository.NewMemoryFlightRepository())
			ctx := context.Background()

			if _, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00")); err != nil {
				t.Fatalf("first claim failed: %v", err)
			}

			_, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", tt.dep, tt.arr))
			if tt.wantReason == conflict.None {
				if err != nil {
					t.Fatalf("expected no conflict, got %v", err)
				}
				return
			}
			if !apperrors.IsRejected(err) || apperrors.ReasonOf(err) != string(tt.wantReason) {
				t.Errorf("expected %s rejection, got %v", tt.wantReason, err)
			}
		})
	}
}

func TestCreateScheduleClaim_OtherAircraftOrDateIndependent(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()

	if _, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00")); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := s.CreateScheduleClaim(ctx, schedule("VT-XYZ", "09:00", "11:00")); err != nil {
		t.Errorf("different aircraft should not conflict: %v", err)
	}
	other := schedule("VT-ABC", "09:00", "11:00")
	other.Date = "2026-11-02"
	if _, err := s.CreateScheduleClaim(ctx, other); err != nil {
		t.Errorf("different date should not conflict: %v", err)
	}
}

func TestCreateScheduleClaim_ConcurrentSameSlot(t *testing.T) {
	repo := repository.NewMemoryFlightRepository()
	s, recorder := newTestService(repo)

	const attempts = 25
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every request overlaps every other: all start before 10:00 and end after it
			dep := fmt.Sprintf("09:%02d", i)
			_, err := s.CreateScheduleClaim(context.Background(), schedule("VT-ABC", dep, "11:00"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.ReasonOf(err) == string(conflict.ScheduleOverlap):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != attempts-1 {
		t.Errorf("ok=%d rejected=%d, want 1 and %d", ok, rejected, attempts-1)
	}

	stored, _ := repo.FindClaims(context.Background(), "VT-ABC", testDate)
	if len(stored) != 1 {
		t.Errorf("stored %d claims, want 1", len(stored))
	}
	if len(recorder.Events()) != 1 {
		t.Errorf("expected one event, got %d", len(recorder.Events()))
	}
}

func TestCreateScheduleClaim_CancelledFreesSlot(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()

	first, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00"))
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := s.UpdateScheduleStatus(ctx, first.ID, model.StatusWire{Status: model.StatusCancelled}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "10:00", "12:00")); err != nil {
		t.Errorf("cancelled claim should not block: %v", err)
	}
}

func TestCreateScheduleClaim_CancelledCandidateStillChecked(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()

	if _, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00")); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	req := schedule("VT-ABC", "10:00", "12:00")
	req.Status = model.StatusCancelled
	if _, err := s.CreateScheduleClaim(ctx, req); apperrors.ReasonOf(err) != string(conflict.ScheduleOverlap) {
		t.Errorf("expected overlap, got %v", err)
	}
}

func TestCreateScheduleClaim_InputErrors(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()
	minutes := 15

	tests := []struct {
		name     string
		req      ScheduleRequest
		wantCode string
	}{
		{name: "arrival before departure", req: schedule("VT-ABC", "11:00", "09:00"), wantCode: apperrors.CodeValidation},
		{name: "bad time", req: schedule("VT-ABC", "9", "11:00"), wantCode: apperrors.CodeValidation},
		{name: "past date", req: ScheduleRequest{AircraftID: "VT-ABC", Date: "2026-10-19", Departure: "09:00", Arrival: "11:00"}, wantCode: apperrors.CodeValidation},
		{name: "stray delay minutes", req: ScheduleRequest{
			AircraftID: "VT-ABC", Date: testDate, Departure: "09:00", Arrival: "11:00",
			StatusWire: model.StatusWire{Status: model.StatusScheduled, DelayMinutes: &minutes},
		}, wantCode: apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateScheduleClaim(ctx, tt.req)
			if apperrors.AsAppError(err).Code != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestUpdateScheduleStatus(t *testing.T) {
	s, recorder := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()

	c, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	minutes := 40
	updated, err := s.UpdateScheduleStatus(ctx, c.ID, model.StatusWire{Status: model.StatusDelayed, DelayMinutes: &minutes})
	if err != nil {
		t.Fatalf("delay failed: %v", err)
	}
	if d, ok := updated.Status.ScheduleStatus.(model.Delayed); !ok || d.Minutes != 40 {
		t.Errorf("unexpected status %#v", updated.Status)
	}

	if _, err := s.UpdateScheduleStatus(ctx, c.ID, model.StatusWire{Status: model.StatusCompleted}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	_, err = s.UpdateScheduleStatus(ctx, c.ID, model.StatusWire{Status: model.StatusScheduled})
	if !apperrors.IsRejected(err) || apperrors.ReasonOf(err) != string(conflict.ClaimClosed) {
		t.Errorf("expected ClaimClosed, got %v", err)
	}

	if _, err := s.UpdateScheduleStatus(ctx, "missing", model.StatusWire{Status: model.StatusCancelled}); apperrors.AsAppError(err).Code != apperrors.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}

	var changed int
	for _, e := range recorder.Events() {
		if e.Type == events.ScheduleUpdated {
			changed++
		}
	}
	if changed != 2 {
		t.Errorf("expected 2 status events, got %d", changed)
	}
}

func TestCreateLeg(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()

	leg, err := s.CreateLeg(ctx, LegRequest{RouteID: "AI-101", StopOrder: 1, Origin: "del", Destination: "bom", Departure: "06:00", Arrival: "08:15"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if leg.DurationMinutes != 135 {
		t.Errorf("duration = %d, want 135", leg.DurationMinutes)
	}
	if leg.Origin != "DEL" || leg.Destination != "BOM" {
		t.Errorf("airports not normalized: %s-%s", leg.Origin, leg.Destination)
	}

	_, err = s.CreateLeg(ctx, LegRequest{RouteID: "AI-101", StopOrder: 1, Origin: "BOM", Destination: "BLR", Departure: "09:00", Arrival: "10:45"})
	if !apperrors.IsRejected(err) || apperrors.ReasonOf(err) != string(conflict.DuplicateStopOrder) {
		t.Errorf("expected DuplicateStopOrder, got %v", err)
	}

	if _, err := s.CreateLeg(ctx, LegRequest{RouteID: "AI-101", StopOrder: 2, Origin: "BOM", Destination: "BLR", Departure: "09:00", Arrival: "10:45"}); err != nil {
		t.Errorf("second stop failed: %v", err)
	}

	legs, _ := s.ListLegs(ctx, "AI-101")
	if len(legs) != 2 || legs[0].StopOrder != 1 || legs[1].StopOrder != 2 {
		t.Errorf("unexpected legs: %+v", legs)
	}
}

func TestCreateLeg_ConcurrentSameStop(t *testing.T) {
	repo := repository.NewMemoryFlightRepository()
	s, _ := newTestService(repo)

	const attempts = 15
	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok int
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateLeg(context.Background(), LegRequest{RouteID: "AI-101", StopOrder: 3, Origin: "DEL", Destination: "BOM", Departure: "06:00", Arrival: "08:00"})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Errorf("%d legs created for one stop, want 1", ok)
	}
}

// racingRepository lets Validate pass and then reports the unique index
// losing at insert time.
type racingRepository struct {
	repository.FlightRepository
	createLeg func(ctx context.Context, l *model.FlightLeg) error
}

func (r *racingRepository) CreateLeg(ctx context.Context, l *model.FlightLeg) error {
	return r.createLeg(ctx, l)
}

func TestCreateLeg_UniqueIndexLossIsTransient(t *testing.T) {
	inner := repository.NewMemoryFlightRepository()
	repo := &racingRepository{
		FlightRepository: inner,
		createLeg: func(ctx context.Context, l *model.FlightLeg) error {
			other := *l
			other.ID = ""
			if err := inner.CreateLeg(ctx, &other); err != nil {
				return err
			}
			return inner.CreateLeg(ctx, l)
		},
	}
	s, _ := newTestService(repo)

	_, err := s.CreateLeg(context.Background(), LegRequest{RouteID: "AI-7", StopOrder: 1, Origin: "DEL", Destination: "BOM", Departure: "06:00", Arrival: "08:00"})
	if !apperrors.IsTransient(err) || apperrors.ReasonOf(err) != string(conflict.DuplicateStopOrder) {
		t.Fatalf("expected transient DuplicateStopOrder, got %v", err)
	}

	legs, _ := inner.FindLegs(context.Background(), "AI-7")
	if len(legs) != 0 {
		t.Errorf("rolled back commit left %d legs", len(legs))
	}
}

func TestGetClaim_NotFound(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())

	_, err := s.GetClaim(context.Background(), "nope")
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdateScheduleStatus_PaddedID(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	ctx := context.Background()

	c, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := s.UpdateScheduleStatus(ctx, "  "+c.ID+"\t", model.StatusWire{Status: model.StatusCancelled})
	if err != nil {
		t.Fatalf("update with padded id failed: %v", err)
	}
	if updated.ID != c.ID || updated.Status.Kind() != model.StatusCancelled {
		t.Errorf("unexpected claim %+v", updated)
	}
}

func TestCreateScheduleClaim_AircraftFleetRecord(t *testing.T) {
	repo := repository.NewMemoryFlightRepository()
	s, _ := newTestService(repo)
	ctx := context.Background()
	active, inactive := true, false

	if _, err := s.CreateScheduleClaim(ctx, schedule("VT-NEW", "09:00", "11:00")); err != nil {
		t.Fatalf("unregistered aircraft should be schedulable, got %v", err)
	}

	if _, err := s.SetAircraft(ctx, "VT-OLD", AircraftRequest{Active: &inactive}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	_, err := s.CreateScheduleClaim(ctx, schedule("VT-OLD", "09:00", "11:00"))
	if !apperrors.IsRejected(err) || apperrors.ReasonOf(err) != string(conflict.AircraftInactive) {
		t.Fatalf("expected AircraftInactive, got %v", err)
	}
	if claims, _ := repo.FindClaims(ctx, "VT-OLD", testDate); len(claims) != 0 {
		t.Errorf("inactive aircraft got %d claims", len(claims))
	}

	if _, err := s.SetAircraft(ctx, "VT-OLD", AircraftRequest{Active: &active}); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if _, err := s.CreateScheduleClaim(ctx, schedule("VT-OLD", "09:00", "11:00")); err != nil {
		t.Errorf("reactivated aircraft rejected: %v", err)
	}
}

// deactivatingRepository flips the aircraft to inactive between Validate and
// Commit.
type deactivatingRepository struct {
	repository.FlightRepository
	lookups int
}

func (r *deactivatingRepository) FindAircraft(ctx context.Context, id string) (*model.Aircraft, error) {
	r.lookups++
	if r.lookups == 2 {
		if err := r.FlightRepository.SaveAircraft(context.Background(), &model.Aircraft{ID: id, Active: false}); err != nil {
			return nil, err
		}
	}
	return r.FlightRepository.FindAircraft(ctx, id)
}

func TestCreateScheduleClaim_DeactivatedBeforeCommit(t *testing.T) {
	repo := &deactivatingRepository{FlightRepository: repository.NewMemoryFlightRepository()}
	ctx := context.Background()
	repo.FlightRepository.SaveAircraft(ctx, &model.Aircraft{ID: "VT-ABC", Active: true})
	s, _ := newTestService(repo)

	_, err := s.CreateScheduleClaim(ctx, schedule("VT-ABC", "09:00", "11:00"))
	if !apperrors.IsTransient(err) || apperrors.ReasonOf(err) != string(conflict.AircraftInactive) {
		t.Fatalf("expected transient AircraftInactive, got %v", err)
	}
}

func TestSetAircraft_InputErrors(t *testing.T) {
	s, _ := newTestService(repository.NewMemoryFlightRepository())
	active := true

	tests := []struct {
		name string
		id   string
		req  AircraftRequest
	}{
		{name: "empty id", id: "  ", req: AircraftRequest{Active: &active}},
		{name: "missing active", id: "VT-ABC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SetAircraft(context.Background(), tt.id, tt.req)
			if code := apperrors.AsAppError(err).Code; code != apperrors.CodeInvalidInput && code != apperrors.CodeValidation {
				t.Errorf("expected input error, got %v", err)
			}
		})
	}
}
