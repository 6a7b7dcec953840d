package domain

import "time"

type Cart struct {
	SessionID string     `json:"session_id" bson:"session_id"`
	Lines     []CartLine `json:"lines" bson:"lines"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// CartLine holds one product's quantity plus the price/display snapshot
// captured when the line was first created. The snapshot is never re-read
// from the catalog, so a cart keeps the price in effect when the item was
// added even if the product is edited afterwards.
type CartLine struct {
	ProductID        string    `json:"product_id" bson:"product_id"`
	Quantity         int       `json:"quantity" bson:"quantity"`
	UnitPrice        float64   `json:"price" bson:"price"`
	Name             string    `json:"name" bson:"name"`
	Color            string    `json:"color,omitempty" bson:"color,omitempty"`
	Size             string    `json:"size,omitempty" bson:"size,omitempty"`
	ImageURL         string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	PricebookEntryID string    `json:"pricebook_entry_id,omitempty" bson:"pricebook_entry_id,omitempty"`
	AddedAt          time.Time `json:"added_at" bson:"added_at"`
}

// Line returns a pointer into Lines for the given product, or nil.
func (c *Cart) Line(productID string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Total is recomputed on every call, never cached.
func (c *Cart) Total() float64 {
	var total float64
	for _, l := range c.Lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

func (c *Cart) ItemCount() int {
	var count int
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// Clone deep-copies the cart so callers can hand it out without exposing
// the store's internal slice to mutation.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return &out
}

// CartSummary is the shape every read and mutation returns, so callers
// never need a follow-up read after a write.
type CartSummary struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"lines"`
	Total     float64    `json:"total"`
	ItemCount int        `json:"item_count"`
}

// Summarize builds a CartSummary from the cart's current lines.
func (c *Cart) Summarize() CartSummary {
	lines := make([]CartLine, len(c.Lines))
	copy(lines, c.Lines)
	return CartSummary{
		SessionID: c.SessionID,
		Lines:     lines,
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
	}
}
