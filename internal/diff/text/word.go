package text

import (
	"strings"
)

// WordChanges compares the whitespace separated words of a and b by
// position. It does not align insertions, so one inserted word shifts every
// following position.
func WordChanges(a string, b string) []Change {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	changes := []Change{}
	for i := 0; i < max(len(wordsA), len(wordsB)); i++ {
		from := wordAt(wordsA, i)
		to := wordAt(wordsB, i)
		if from == to {
			continue
		}

		kind := KindChanged
		switch {
		case from == "":
			kind = KindAdded
		case to == "":
			kind = KindRemoved
		}
		changes = append(changes, Change{
			Position: i,
			From:     from,
			To:       to,
			Kind:     kind,
		})
	}

	return changes
}

func wordAt(words []string, i int) string {
	if i < len(words) {
		return words[i]
	}
	return ""
}
