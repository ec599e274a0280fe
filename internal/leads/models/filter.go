package models

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// ListFilter narrows a lead listing. Zero values mean "any".
type ListFilter struct {
	Status   Status
	ListName string
	Provider string
	Search   string
	Limit    int
	Offset   int
}

// Normalized clamps paging to sane bounds.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// StatusCounts maps each stage to the number of leads in it.
type StatusCounts map[Status]int

// Total sums every bucket.
func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}
