package util

// Unique keeps the first occurrence of each value, dropping zero values.
func Unique[T comparable](items []T) []T {
	var zero T
	seen := make(map[T]struct{}, len(items))
	list := items[:0:0]

	for _, item := range items {
		if item == zero {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		list = append(list, item)
	}

	return list
}
