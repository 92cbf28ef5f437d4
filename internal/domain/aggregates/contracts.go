package aggregates

// LockScope names the row a write unit serializes on.
type LockScope string

const (
	// LockNone relies on unique keys alone (rule inserts race on the primary key).
	LockNone LockScope = "none"
	// LockDriverScore takes SELECT ... FOR UPDATE on the driver's driver_scores row
	// and commits through a version compare-and-set.
	LockDriverScore LockScope = "driver_score_row"
)

// Contract documents what one aggregate mutates atomically.
type Contract struct {
	Name   string
	Tables []string
	Lock   LockScope
}

// Aggregate is implemented by every write-side aggregate.
type Aggregate interface {
	Contract() Contract
}

// Op is the metric/log operation name for one of the aggregate's methods.
func (c Contract) Op(method string) string {
	if method == "" {
		return c.Name
	}
	return c.Name + "." + method
}

// Writes reports whether table is part of the aggregate's transactional footprint.
func (c Contract) Writes(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
