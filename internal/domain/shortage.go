package domain

import "sort"

// ShortageItem is one short SKU in a shortage report
type ShortageItem struct {
	SKU       string `bson:"sku" json:"sku"`
	Name      string `bson:"name" json:"name"`
	Needed    int    `bson:"needed" json:"needed"`
	Available int    `bson:"available" json:"available"`
	Missing   int    `bson:"missing" json:"missing"`
}

// ShortageReport is the structured outcome of an allocation attempt
// that found insufficient stock. Demand exceeding supply is the
// expected, common case; the report renders as an actionable per-SKU
// breakdown, never a generic error.
type ShortageReport struct {
	Items []ShortageItem `bson:"items" json:"items"`
}

// NewShortageReport creates an empty report
func NewShortageReport() *ShortageReport {
	return &ShortageReport{Items: make([]ShortageItem, 0)}
}

// Add records one short SKU. Repeated SKUs accumulate, which is how a
// wave aggregates shortage across member documents.
func (r *ShortageReport) Add(sku, name string, needed, available int) {
	for idx := range r.Items {
		if r.Items[idx].SKU == sku {
			r.Items[idx].Needed += needed
			r.Items[idx].Missing = r.Items[idx].Needed - r.Items[idx].Available
			return
		}
	}
	r.Items = append(r.Items, ShortageItem{
		SKU:       sku,
		Name:      name,
		Needed:    needed,
		Available: available,
		Missing:   needed - available,
	})
}

// Merge folds another report into this one
func (r *ShortageReport) Merge(other *ShortageReport) {
	if other == nil {
		return
	}
	for _, item := range other.Items {
		r.Add(item.SKU, item.Name, item.Needed, item.Available)
	}
}

// IsShort reports whether any SKU is missing
func (r *ShortageReport) IsShort() bool {
	if r == nil {
		return false
	}
	for _, item := range r.Items {
		if item.Missing > 0 {
			return true
		}
	}
	return false
}

// Sorted returns items ordered by SKU for stable display
func (r *ShortageReport) Sorted() []ShortageItem {
	items := make([]ShortageItem, len(r.Items))
	copy(items, r.Items)
	sort.Slice(items, func(a, b int) bool { return items[a].SKU < items[b].SKU })
	return items
}
