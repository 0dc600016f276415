package text

import (
	"slices"
	"strings"
)

// Lines lists the lines of a and b aligned on their longest common
// subsequence. Kept lines start with two spaces, lines only in b with "+ "
// and lines only in a with "- ".
func Lines(a string, b string) string {
	before := splitLines(a)
	after := splitLines(b)
	table := commonSubsequence(before, after)

	var lines []string
	i, j := len(before), len(after)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && before[i-1] == after[j-1]:
			lines = append(lines, "  "+before[i-1])
			i--
			j--
		case j > 0 && (i == 0 || table[i][j-1] >= table[i-1][j]):
			lines = append(lines, "+ "+after[j-1])
			j--
		default:
			lines = append(lines, "- "+before[i-1])
			i--
		}
	}

	slices.Reverse(lines)
	return strings.Join(lines, "\n")
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func commonSubsequence(before []string, after []string) [][]int {
	table := make([][]int, len(before)+1)
	for i := range table {
		table[i] = make([]int, len(after)+1)
	}

	for i := 1; i <= len(before); i++ {
		for j := 1; j <= len(after); j++ {
			if before[i-1] == after[j-1] {
				table[i][j] = table[i-1][j-1] + 1
			} else {
				table[i][j] = max(table[i-1][j], table[i][j-1])
			}
		}
	}

	return table
}
