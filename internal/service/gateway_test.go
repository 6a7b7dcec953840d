package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addInput(productID string, qty int, price float64) AddItemInput {
	return AddItemInput{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: price,
		Name:      "Product " + productID,
	}
}

func TestGateway_AddItem_Validation(t *testing.T) {
	_, _, gateway, session := newTestStack(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   AddItemInput
	}{
		{"empty product id", addInput("", 1, 10)},
		{"zero quantity", addInput("p1", 0, 10)},
		{"negative quantity", addInput("p1", -2, 10)},
		{"negative price", addInput("p1", 1, -1)},
		{"empty name", AddItemInput{ProductID: "p1", Quantity: 1, UnitPrice: 10}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gateway.AddItem(ctx, session.ID, tc.in)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}

	// Nothing reached the store.
	summary, err := gateway.ReadCart(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, summary.Lines)
}

func TestGateway_UpdateQuantity_Validation(t *testing.T) {
	_, _, gateway, session := newTestStack(t)

	_, err := gateway.UpdateQuantity(context.Background(), session.ID, "p1", 0)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

// Two channels adding the same product near-simultaneously must both
// apply: the final quantity increases by exactly the sum, never loses an
// update.
func TestGateway_ConcurrentAdds_SameProduct_NoLostUpdate(t *testing.T) {
	_, _, gateway, session := newTestStack(t)
	ctx := context.Background()

	const writers = 50

	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			_, err := gateway.AddItem(ctx, session.ID, addInput("p1", 1, 10))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	summary, err := gateway.ReadCart(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	assert.Equal(t, writers, summary.Lines[0].Quantity)
	assert.Equal(t, writers, summary.ItemCount)
}

func TestGateway_ConcurrentAdds_DistinctProducts(t *testing.T) {
	_, _, gateway, session := newTestStack(t)
	ctx := context.Background()

	products := []string{"p1", "p2", "p3", "p4", "p5"}

	var wg sync.WaitGroup
	for _, p := range products {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(productID string) {
				defer wg.Done()
				_, err := gateway.AddItem(ctx, session.ID, addInput(productID, 1, 2))
				assert.NoError(t, err)
			}(p)
		}
	}
	wg.Wait()

	summary, err := gateway.ReadCart(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, summary.Lines, len(products))
	assert.Equal(t, 50, summary.ItemCount)
	assert.Equal(t, 100.0, summary.Total)
}

// Sessions must not contend with each other: a mix of writers across two
// sessions lands the right totals in each.
func TestGateway_SessionsIndependent(t *testing.T) {
	sessions, _, gateway, sessionA := newTestStack(t)
	ctx := context.Background()

	sessionB, err := sessions.GetOrCreate(ctx, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := gateway.AddItem(ctx, sessionA.ID, addInput("p1", 1, 1))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := gateway.AddItem(ctx, sessionB.ID, addInput("p1", 2, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := gateway.ReadCart(ctx, sessionA.ID)
	require.NoError(t, err)
	b, err := gateway.ReadCart(ctx, sessionB.ID)
	require.NoError(t, err)

	assert.Equal(t, 20, a.ItemCount)
	assert.Equal(t, 40, b.ItemCount)
}

// Reads do not take the write lock: they return committed state even
// while writers are queued.
func TestGateway_ReadsDoNotBlockOnWriters(t *testing.T) {
	_, _, gateway, session := newTestStack(t)
	ctx := context.Background()

	_, err := gateway.AddItem(ctx, session.ID, addInput("p1", 1, 10))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			_, err := gateway.AddItem(ctx, session.ID, addInput("p1", 1, 10))
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 25; i++ {
		summary, err := gateway.ReadCart(ctx, session.ID)
		require.NoError(t, err)
		// Any committed state between 1 and 26 units is legal, but a
		// single mutation is never observed half-applied.
		require.Len(t, summary.Lines, 1)
		assert.Equal(t, summary.Lines[0].Quantity, summary.ItemCount)
	}
	<-done
}
