package content

import (
	"errors"
	"sort"
)

// ErrNotFound is returned when an action targets an id that is not in the
// collection. The input collection is left untouched.
var ErrNotFound = errors.New("content: item not found")

// Item is anything addressable by a collection-unique id.
type Item interface {
	ItemID() string
}

// Create returns a new collection with item added. Posts prepend, gallery
// and progress append.
func Create[T Item](items []T, item T, prepend bool) []T {
	result := make([]T, 0, len(items)+1)
	if prepend {
		result = append(result, item)
		return append(result, items...)
	}
	result = append(result, items...)
	return append(result, item)
}

// Update returns a new collection with the element matching id replaced.
func Update[T Item](items []T, id string, item T) ([]T, error) {
	index := indexOf(items, id)
	if index < 0 {
		return nil, ErrNotFound
	}
	result := make([]T, len(items))
	copy(result, items)
	result[index] = item
	return result, nil
}

// Delete returns a new collection without the element matching id.
func Delete[T Item](items []T, id string) ([]T, error) {
	index := indexOf(items, id)
	if index < 0 {
		return nil, ErrNotFound
	}
	result := make([]T, 0, len(items)-1)
	result = append(result, items[:index]...)
	return append(result, items[index+1:]...), nil
}

// Reorder returns a new collection with a dense 1..N order assignment
// following the given id sequence. Elements not named keep their original
// relative order after the named ones. Ids that match nothing are skipped,
// so applying the same ordering twice yields the same assignment.
func Reorder[T Item](items []T, ids []string, setOrder func(*T, int)) []T {
	taken := make(map[string]bool, len(ids))
	result := make([]T, 0, len(items))
	for _, id := range ids {
		index := indexOf(items, id)
		if index < 0 || taken[id] {
			continue
		}
		taken[id] = true
		result = append(result, items[index])
	}
	for _, item := range items {
		if !taken[item.ItemID()] {
			result = append(result, item)
		}
	}
	for i := range result {
		setOrder(&result[i], i+1)
	}
	return result
}

func indexOf[T Item](items []T, id string) int {
	for i, item := range items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}

func stableSort[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
