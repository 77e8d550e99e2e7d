package recorder

import (
	"errors"

	"github.com/fixturelab/autofixture/pkg/fixture"
)

var errDirectiveActive = errors.New("a recording directive is already active; overlapping Record/RecordAll brackets are not supported")

// directive is one recording instruction pushed by a Record or RecordAll
// bracket around a test method.
type directive struct {
	testID string
	names  fixture.Names

	// allExchanges keeps the directive alive for every exchange the test
	// performs; otherwise it is consumed by the first exchange.
	allExchanges bool
}

// decision carries the metadata the controller needs to record one exchange.
type decision struct {
	testID string
	names  fixture.Names
}

// policy decides, per observed exchange, whether to record and under what
// names. With no directive active it falls back to the undirected mode:
// record-everything when explicitOnly is false, record-nothing when true.
//
// At most one directive is active at a time; test execution is assumed
// sequential.
type policy struct {
	explicitOnly bool
	active       *directive
}

// enterTest pushes the directive for the test method now starting.
func (p *policy) enterTest(d *directive) error {
	if p.active != nil {
		return errDirectiveActive
	}
	p.active = d
	return nil
}

// exitTest restores the idle state. It runs on every test exit, success or
// failure, so a failing test never leaks recording state into the next one.
func (p *policy) exitTest() {
	p.active = nil
}

// decide reports whether the exchange being finalized should be recorded.
// A single-exchange directive is consumed by this call; later exchanges in
// the same test fall back to the undirected mode.
func (p *policy) decide() (decision, bool) {
	if p.active != nil {
		d := *p.active
		if !d.allExchanges {
			p.active = nil
		}
		return decision{testID: d.testID, names: d.names}, true
	}

	if p.explicitOnly {
		return decision{}, false
	}
	return decision{}, true
}
