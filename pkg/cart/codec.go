package cart

import (
	"encoding/json"
	"fmt"
)

// Decode parses a serialized cart and checks its shape: positive ids, no
// duplicates and amounts of at least one.
func Decode(data []byte) ([]Product, error) {
	var items []Product
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	seen := make(map[int]struct{}, len(items))
	for i, p := range items {
		if p.ID <= 0 {
			return nil, fmt.Errorf("item %d: invalid id %d", i, p.ID)
		}
		if p.Amount < 1 {
			return nil, fmt.Errorf("item %d: invalid amount %d", i, p.Amount)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id %d", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	if items == nil {
		items = []Product{}
	}
	return items, nil
}
