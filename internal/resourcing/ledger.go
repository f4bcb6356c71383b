package resourcing

import (
	"sort"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
)

// Block is one span of a resource's availability with its capacity counters.
type Block struct {
	When      calendar.DayAndTimePeriod
	Remaining models.Capacity
	Total     models.Capacity
}

// Exhausted blocks stay in the ledger so total capacity can still be reported,
// but they never satisfy a request.
func (b Block) Exhausted() bool { return b.Remaining < 1 }

type resourceState struct {
	resource models.Resource
	blocks   []Block
}

// Ledger tracks remaining capacity per resource. A Ledger is never mutated:
// Commit and ResourceBookings return a new one and share untouched state.
type Ledger struct {
	resources []resourceState
	index     map[models.ResourceID]int
}

// NewLedger seeds a ledger from each resource's availability blocks.
// Resources are matched in the order given.
func NewLedger(resources []models.Resource) (Ledger, error) {
	l := Ledger{
		resources: make([]resourceState, 0, len(resources)),
		index:     make(map[models.ResourceID]int, len(resources)),
	}
	for _, r := range resources {
		if err := r.Validate(); err != nil {
			return Ledger{}, err
		}
		if _, dup := l.index[r.ID]; dup {
			return Ledger{}, models.Precondition("resources["+string(r.ID)+"]", "duplicate resource id", nil)
		}
		blocks := make([]Block, 0, len(r.Availability))
		for _, a := range r.Availability {
			if a.Capacity == 0 {
				continue
			}
			blocks = append(blocks, Block{When: a.When, Remaining: a.Capacity, Total: a.Capacity})
		}
		sortBlocks(blocks)
		l.index[r.ID] = len(l.resources)
		l.resources = append(l.resources, resourceState{resource: r, blocks: blocks})
	}
	return l, nil
}

// Resources lists the pool in matching order.
func (l Ledger) Resources() []models.Resource {
	out := make([]models.Resource, len(l.resources))
	for i, st := range l.resources {
		out[i] = st.resource
	}
	return out
}

// Blocks returns a copy of the current blocks of one resource.
func (l Ledger) Blocks(id models.ResourceID) ([]Block, error) {
	i, ok := l.index[id]
	if !ok {
		return nil, models.NotFound("resource", id)
	}
	return append([]Block(nil), l.resources[i].blocks...), nil
}

// coverage returns the blocks of st that together cover period without a gap.
func (st resourceState) coverage(period calendar.DayAndTimePeriod, live bool) ([]Block, bool) {
	var covering []Block
	for _, b := range st.blocks {
		if live && b.Exhausted() {
			continue
		}
		if calendar.Overlaps(b.When, period) {
			covering = append(covering, b)
		}
	}
	if len(covering) == 0 {
		return nil, false
	}
	if covering[0].When.StartInstant() > period.StartInstant() {
		return nil, false
	}
	for i := 1; i < len(covering); i++ {
		if !calendar.Sequential(covering[i-1].When, covering[i].When) {
			return nil, false
		}
	}
	if covering[len(covering)-1].When.EndInstant() < period.EndInstant() {
		return nil, false
	}
	return covering, true
}

// freeUnits is the number of units of st still bookable for the whole period.
func (st resourceState) freeUnits(period calendar.DayAndTimePeriod) models.Capacity {
	covering, ok := st.coverage(period, true)
	if !ok {
		return 0
	}
	free := covering[0].Remaining
	for _, b := range covering[1:] {
		if b.Remaining < free {
			free = b.Remaining
		}
	}
	return free
}

// totalUnits ignores bookings: the capacity the resource offers for the whole period.
func (st resourceState) totalUnits(period calendar.DayAndTimePeriod) models.Capacity {
	covering, ok := st.coverage(period, false)
	if !ok {
		return 0
	}
	total := covering[0].Total
	for _, b := range covering[1:] {
		if b.Total < total {
			total = b.Total
		}
	}
	return total
}

func (st resourceState) matches(req models.ResourceRequirement) bool {
	switch r := req.(type) {
	case models.AnySuitableResource:
		return st.resource.Type.Name == r.Type.Name
	case models.SpecificResource:
		return st.resource.ID == r.ResourceID
	default:
		return false
	}
}

func sortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].When.StartInstant() < blocks[j].When.StartInstant()
	})
}
