package resourcing

import (
	"errors"
	"fmt"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
)

// ErrCapacityExhausted is returned by Commit when the ledger can no longer
// hold the allocation it is given.
var ErrCapacityExhausted = errors.New("resourcing: capacity exhausted")

// Request asks for every Requirement over Period. Ref identifies it in outcomes.
type Request struct {
	Ref          string
	Period       calendar.DayAndTimePeriod
	Requirements []models.ResourceRequirement
}

// Allocation pairs a requirement with the resource chosen for it.
type Allocation struct {
	Requirement models.ResourceRequirement
	ResourceID  models.ResourceID
}

// Outcome is Available or Unavailable.
type Outcome interface {
	BookingRef() string
	isOutcome()
}

// Available means every requirement found a resource.
// TotalCapacity is how many such bookings the pool could take at this period with no bookings;
// RemainingCapacity is how many more it could take after this one.
type Available struct {
	Request           Request
	Allocations       []Allocation
	TotalCapacity     models.Capacity
	RemainingCapacity models.Capacity
}

// Unavailable lists the requirements that found no resource.
type Unavailable struct {
	Request     Request
	Unsatisfied []models.ResourceRequirement
}

func (a Available) BookingRef() string   { return a.Request.Ref }
func (u Unavailable) BookingRef() string { return u.Request.Ref }
func (Available) isOutcome()             {}
func (Unavailable) isOutcome()           {}

// Reason is a one-line diagnostic for logs.
func (u Unavailable) Reason() string {
	if len(u.Unsatisfied) == 0 {
		return "closed at " + u.Request.Period.String()
	}
	msg := "no free " + models.DescribeRequirement(u.Unsatisfied[0])
	for _, req := range u.Unsatisfied[1:] {
		msg += ", " + models.DescribeRequirement(req)
	}
	return msg + " for " + u.Request.Period.String()
}

// CheckAvailability resolves req's requirements left to right, first fit,
// never giving one resource to two requirements of the same request.
// Infeasibility is reported as Unavailable. Errors are returned only for an
// invalid period or a specific resource the ledger does not know.
func CheckAvailability(l Ledger, req Request) (Outcome, error) {
	if err := req.Period.Validate(); err != nil {
		return nil, models.Precondition("request["+req.Ref+"].period", "invalid period", err)
	}

	claimed := make(map[models.ResourceID]bool, len(req.Requirements))
	allocations := make([]Allocation, 0, len(req.Requirements))
	var unsatisfied []models.ResourceRequirement

	for _, requirement := range req.Requirements {
		switch r := requirement.(type) {
		case models.SpecificResource:
			if _, ok := l.index[r.ResourceID]; !ok {
				return nil, models.NotFound("resource", r.ResourceID)
			}
		case models.AnySuitableResource:
		default:
			return nil, models.Precondition("request["+req.Ref+"].requirements", fmt.Sprintf("unsupported requirement %T", requirement), nil)
		}

		found := false
		for _, st := range l.resources {
			if claimed[st.resource.ID] || !st.matches(requirement) {
				continue
			}
			if st.freeUnits(req.Period) < 1 {
				continue
			}
			claimed[st.resource.ID] = true
			allocations = append(allocations, Allocation{Requirement: requirement, ResourceID: st.resource.ID})
			found = true
			break
		}
		if !found {
			unsatisfied = append(unsatisfied, requirement)
		}
	}

	if len(unsatisfied) > 0 {
		return Unavailable{Request: req, Unsatisfied: unsatisfied}, nil
	}

	total, remaining := l.capacity(req)
	return Available{
		Request:           req,
		Allocations:       allocations,
		TotalCapacity:     total,
		RemainingCapacity: remaining,
	}, nil
}

// capacity groups requirements by what they draw on. With demand d for a group
// of u units, the group can take floor(u/d) bookings; the tightest group wins.
// A resource named by a specific requirement never counts toward a type group
// of the same request, since one booking cannot use it twice.
func (l Ledger) capacity(req Request) (total, remaining models.Capacity) {
	if len(req.Requirements) == 0 {
		return 1, 1
	}

	demand := make(map[string]int)
	pinned := make(map[models.ResourceID]bool)
	order := make([]models.ResourceRequirement, 0, len(req.Requirements))
	for _, r := range req.Requirements {
		key := models.RequirementKey(r)
		if demand[key] == 0 {
			order = append(order, r)
		}
		demand[key]++
		if s, ok := r.(models.SpecificResource); ok {
			pinned[s.ResourceID] = true
		}
	}

	first := true
	for _, r := range order {
		d := demand[models.RequirementKey(r)]
		var units, free models.Capacity
		_, byType := r.(models.AnySuitableResource)
		for _, st := range l.resources {
			if !st.matches(r) || (byType && pinned[st.resource.ID]) {
				continue
			}
			units += st.totalUnits(req.Period)
			free += st.freeUnits(req.Period)
		}
		after := free - models.Capacity(d)
		if after < 0 {
			after = 0
		}
		t := units / models.Capacity(d)
		rem := after / models.Capacity(d)
		if first || t < total {
			total = t
		}
		if first || rem < remaining {
			remaining = rem
		}
		first = false
	}
	return total, remaining
}

// Commit takes one unit from every allocated resource over the request period.
// Overlapped blocks are split so only the booked span loses capacity.
func Commit(l Ledger, a Available) (Ledger, error) {
	next := Ledger{
		resources: append([]resourceState(nil), l.resources...),
		index:     l.index,
	}
	period := a.Request.Period

	for _, alloc := range a.Allocations {
		i, ok := next.index[alloc.ResourceID]
		if !ok {
			return Ledger{}, models.NotFound("resource", alloc.ResourceID)
		}
		st := next.resources[i]
		if st.freeUnits(period) < 1 {
			return Ledger{}, fmt.Errorf("%w: %s at %s", ErrCapacityExhausted, alloc.ResourceID, period)
		}

		blocks := make([]Block, 0, len(st.blocks)+2)
		for _, b := range st.blocks {
			if !calendar.Overlaps(b.When, period) {
				blocks = append(blocks, b)
				continue
			}
			for _, seg := range calendar.SplitPeriod(b.When, period, true) {
				nb := Block{When: seg, Remaining: b.Remaining, Total: b.Total}
				if calendar.Covers(period, seg) {
					nb.Remaining--
				}
				blocks = append(blocks, nb)
			}
		}
		next.resources[i] = resourceState{resource: st.resource, blocks: blocks}
	}
	return next, nil
}

// ResourceBookings folds requests into l in input order. A request that no
// longer fits is kept as Unavailable and does not touch the ledger, so the
// earlier request always wins.
func ResourceBookings(l Ledger, requests []Request) (Ledger, []Outcome, error) {
	outcomes := make([]Outcome, 0, len(requests))
	for _, req := range requests {
		outcome, err := CheckAvailability(l, req)
		if err != nil {
			return Ledger{}, nil, err
		}
		if available, ok := outcome.(Available); ok {
			l, err = Commit(l, available)
			if err != nil {
				return Ledger{}, nil, err
			}
		}
		outcomes = append(outcomes, outcome)
	}
	return l, outcomes, nil
}
