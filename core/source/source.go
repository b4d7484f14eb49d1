// Package source provides the per-epoch setpoint inputs a storage component
// can be driven from when it is not controlled through the message bus.
package source

import "errors"

// ErrExhausted is returned by Next when the source has no more rows.
var ErrExhausted = errors.New("setpoint source exhausted")

// Row is one epoch worth of control data from a pre-recorded series.
// CustomerID and Node are passthrough metadata reassigned onto the storage
// for the epoch; HasCustomerID and HasNode report whether the series carries
// those columns at all.
type Row struct {
	RealPowerKW     float64
	ReactivePowerKW float64
	CustomerID      string
	Node            string // "", "1", "2" or "3"
	HasCustomerID   bool
	HasNode         bool
}

// SetpointSource yields one row per epoch, in epoch order.
type SetpointSource interface {
	Next() (Row, error)
	Close() error
}

// SliceSource serves rows from memory. Used by tests and the replay command.
type SliceSource struct {
	rows []Row
	next int
}

// NewSliceSource creates a source over the given rows.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next returns the next row or ErrExhausted.
func (s *SliceSource) Next() (Row, error) {
	if s.next >= len(s.rows) {
		return Row{}, ErrExhausted
	}
	r := s.rows[s.next]
	s.next++
	return r, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }
