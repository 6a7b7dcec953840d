package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_Totals(t *testing.T) {
	cart := &Cart{
		SessionID: "session-abc",
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 2, UnitPrice: 10.50},
			{ProductID: "p2", Quantity: 3, UnitPrice: 4.00},
		},
	}

	assert.Equal(t, 33.0, cart.Total())
	assert.Equal(t, 5, cart.ItemCount())
}

func TestCart_Totals_Empty(t *testing.T) {
	cart := &Cart{SessionID: "session-abc"}

	assert.Equal(t, 0.0, cart.Total())
	assert.Equal(t, 0, cart.ItemCount())
}

func TestCart_Line(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 1},
		},
	}

	line := cart.Line("p1")
	assert.NotNil(t, line)

	// The returned pointer aliases the cart's own line.
	line.Quantity = 7
	assert.Equal(t, 7, cart.Lines[0].Quantity)

	assert.Nil(t, cart.Line("missing"))
}

func TestCart_Clone_Isolated(t *testing.T) {
	cart := &Cart{
		Lines: []CartLine{{ProductID: "p1", Quantity: 1}},
	}

	clone := cart.Clone()
	clone.Lines[0].Quantity = 99

	assert.Equal(t, 1, cart.Lines[0].Quantity)
}

func TestCart_Summarize(t *testing.T) {
	cart := &Cart{
		SessionID: "session-abc",
		Lines: []CartLine{
			{ProductID: "p1", Quantity: 2, UnitPrice: 5},
		},
	}

	summary := cart.Summarize()
	assert.Equal(t, "session-abc", summary.SessionID)
	assert.Equal(t, 10.0, summary.Total)
	assert.Equal(t, 2, summary.ItemCount)

	// Mutating the summary must not reach back into the cart.
	summary.Lines[0].Quantity = 50
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}
