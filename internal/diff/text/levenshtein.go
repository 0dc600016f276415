package text

// Distance is the Levenshtein distance between a and b counted in runes,
// with unit cost for insertion, deletion and substitution.
func Distance(a string, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			if ra[i-1] == rb[j-1] {
				curr[i] = prev[i-1]
			} else {
				curr[i] = min(prev[i-1], curr[i-1], prev[i]) + 1
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

// Similarity is 1 - Distance/maxLength, and 1 when both strings are empty.
func Similarity(a string, b string) float64 {
	maxLength := max(len([]rune(a)), len([]rune(b)))
	if maxLength == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b))/float64(maxLength)
}
