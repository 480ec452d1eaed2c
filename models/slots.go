package models

// The API models several one-to-many relations (field data, phone numbers,
// contacts, assignment histories) that the report reduces to a fixed small
// number of named slots. The reduction is deliberately lossy; these helpers
// make that an explicit contract instead of scattered index accesses.

type SlotOrder int

const (
	// FirstN keeps the leading n elements in API order.
	FirstN SlotOrder = iota
	// TrailingNewestFirst keeps the trailing n elements reversed, so the
	// latest entry lands in slot 0.
	TrailingNewestFirst
)

// ReduceToSlots projects a collection onto exactly n positional slots.
// Unfilled slots are nil.
func ReduceToSlots[T any](items []T, n int, order SlotOrder) []*T {
	slots := make([]*T, n)
	if len(items) == 0 || n == 0 {
		return slots
	}
	switch order {
	case TrailingNewestFirst:
		start := len(items) - n
		if start < 0 {
			start = 0
		}
		trailing := items[start:]
		for i := range trailing {
			idx := len(trailing) - 1 - i
			if i < n {
				v := trailing[idx]
				slots[i] = &v
			}
		}
	default:
		for i := 0; i < n && i < len(items); i++ {
			v := items[i]
			slots[i] = &v
		}
	}
	return slots
}

// TakeFirst is the single-slot reduction: the first element or nil.
func TakeFirst[T any](items []T) *T {
	if len(items) == 0 {
		return nil
	}
	v := items[0]
	return &v
}
