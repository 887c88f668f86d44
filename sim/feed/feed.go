package feed

// Observer receives every record as it is published, in publication order.
// Observers are side channels: they must not mutate simulation state.
type Observer interface {
	Observe(Record)
}

// Feed collects the ordered record sequence for a single run and fans each
// record out to attached observers.
type Feed struct {
	records   []Record
	observers []Observer
}

// New creates an empty Feed.
func New() *Feed {
	return &Feed{
		records: make([]Record, 0),
	}
}

// Attach registers an observer. Attach order determines notification order.
func (f *Feed) Attach(o Observer) {
	f.observers = append(f.observers, o)
}

// Publish appends a record and notifies observers.
func (f *Feed) Publish(r Record) {
	f.records = append(f.records, r)
	for _, o := range f.observers {
		o.Observe(r)
	}
}

// Records returns the full record sequence in publication order.
// The returned slice is the feed's internal storage; callers must treat it
// as read-only.
func (f *Feed) Records() []Record {
	return f.records
}

// Len returns the number of published records.
func (f *Feed) Len() int {
	return len(f.records)
}
