// Package conflict holds the side-effect-free rules that decide whether a
// claim on shared inventory may proceed. Every predicate returns a Reason;
// the empty Reason means no conflict.
package conflict

import (
	"time"

	"travelcore/pkg/model"

	"github.com/shopspring/decimal"
)

type Reason string

const (
	None Reason = ""

	Inactive        Reason = "Inactive"
	OutOfWindow     Reason = "OutOfWindow"
	ExhaustedUses   Reason = "ExhaustedUses"
	AlreadyRedeemed Reason = "AlreadyRedeemed"
	BelowMinSpend   Reason = "BelowMinSpend"

	ScheduleOverlap    Reason = "ScheduleOverlap"
	DuplicateStopOrder Reason = "DuplicateStopOrder"
	ClaimClosed        Reason = "ClaimClosed"
	AircraftInactive   Reason = "AircraftInactive"

	InsufficientInventory Reason = "InsufficientInventory"
	BelowMinStay          Reason = "BelowMinStay"
	RoomUnavailable       Reason = "RoomUnavailable"
	MissingAvailability   Reason = "MissingAvailability"
	OccupancyExceeded     Reason = "OccupancyExceeded"

	// Contended is used when exclusive access to a key could not be obtained in time.
	Contended Reason = "Contended"
)

func (r Reason) String() string {
	return string(r)
}

// Coupon evaluates the redemption rules in their fixed precedence:
// inactive, out-of-window, exhausted, already-redeemed, below-min-spend.
func Coupon(c *model.Coupon, alreadyRedeemed bool, total decimal.Decimal, now time.Time) Reason {
	switch {
	case !c.Active:
		return Inactive
	case !c.InWindow(now):
		return OutOfWindow
	case c.UsedCount >= c.MaxUses:
		return ExhaustedUses
	case alreadyRedeemed:
		return AlreadyRedeemed
	case c.MinSpend != nil && total.LessThan(*c.MinSpend):
		return BelowMinSpend
	}
	return None
}

// Overlaps is the half-open interval test: touching boundaries do not overlap.
func Overlaps(start1, end1, start2, end2 model.TimeOfDay) bool {
	return start1 < end2 && end1 > start2
}

// FindScheduleOverlap returns the first existing claim whose interval intersects
// the candidate. Claims with the candidate's own ID and cancelled claims are
// ignored. The caller supplies claims for the same aircraft and date.
func FindScheduleOverlap(candidate *model.ScheduleClaim, existing []*model.ScheduleClaim) (*model.ScheduleClaim, bool) {
	for _, e := range existing {
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		if !e.Occupies() {
			continue
		}
		if Overlaps(candidate.Departure, candidate.Arrival, e.Departure, e.Arrival) {
			return e, true
		}
	}
	return nil, false
}

// StatusChange refuses to move a claim out of cancelled or completed.
func StatusChange(from, to model.StatusKind) Reason {
	if from == to {
		return None
	}
	if from == model.StatusCancelled || from == model.StatusCompleted {
		return ClaimClosed
	}
	return None
}

// LegOrdinal reports whether another leg of the route already uses stopOrder.
func LegOrdinal(legID string, stopOrder int, existing []*model.FlightLeg) bool {
	for _, l := range existing {
		if legID != "" && l.ID == legID {
			continue
		}
		if l.StopOrder == stopOrder {
			return true
		}
	}
	return false
}

// NightConflict pairs a reason with the night that produced it.
type NightConflict struct {
	Reason Reason
	Date   time.Time
}

// RoomCapacity checks every night of a stay against its availability record.
// records is keyed by night (midnight UTC). The first failing night wins, in
// date order, and within a night: missing, unavailable, min-stay, inventory.
func RoomCapacity(records map[time.Time]*model.RoomAvailability, nights []time.Time, requested int) *NightConflict {
	for _, night := range nights {
		r, ok := records[night]
		switch {
		case !ok:
			return &NightConflict{Reason: MissingAvailability, Date: night}
		case !r.IsAvailable:
			return &NightConflict{Reason: RoomUnavailable, Date: night}
		case len(nights) < r.MinStayNights:
			return &NightConflict{Reason: BelowMinStay, Date: night}
		case requested > r.AvailableRooms-r.BlockedRooms:
			return &NightConflict{Reason: InsufficientInventory, Date: night}
		}
	}
	return nil
}

// OverOccupied checks the guest count against the per-room limits of a room type.
func OverOccupied(rt *model.RoomType, rooms, adults, children int) bool {
	return adults > rooms*rt.MaxAdults ||
		children > rooms*rt.MaxChildren ||
		adults+children > rooms*rt.MaxOccupancy
}
