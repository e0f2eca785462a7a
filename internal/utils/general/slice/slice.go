package slice

// Contains reports whether item is present in s
func Contains[T comparable](s []T, item T) bool {
	for _, v := range s {
		if v == item {
			return true
		}
	}
	return false
}

// Duplicates returns every value that occurs more than once in s, in order
// of its second occurrence
func Duplicates[T comparable](s []T) []T {
	seen := make(map[T]int, len(s))
	var dups []T
	for _, v := range s {
		seen[v]++
		if seen[v] == 2 {
			dups = append(dups, v)
		}
	}
	return dups
}
