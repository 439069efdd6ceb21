package sampling

// GridIndices expands the Cartesian product of the given discrete
// cardinalities. Each row is one combination of value-set indices; the first
// dimension varies fastest and the last varies slowest. The number of rows is
// the product of the cardinalities; grid sampling takes no n parameter.
func GridIndices(cardinalities []int) [][]int {
	total := 1
	for _, c := range cardinalities {
		total *= c
	}
	if len(cardinalities) == 0 || total == 0 {
		return nil
	}
	out := make([][]int, total)
	current := make([]int, len(cardinalities))
	for row := 0; row < total; row++ {
		combo := make([]int, len(current))
		copy(combo, current)
		out[row] = combo
		for i := 0; i < len(current); i++ {
			current[i]++
			if current[i] < cardinalities[i] {
				break
			}
			current[i] = 0
		}
	}
	return out
}
