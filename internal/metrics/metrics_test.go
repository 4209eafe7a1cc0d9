package metrics

import "testing"

func TestNoOpDiscardsEvents(t *testing.T) {
	var sink Sink = NoOp{}
	// Emit must simply not panic; NoOp has nothing observable to assert.
	sink.Emit(Event{ConfigID: "cfg", Depth: 3, Placements: 10})
}
