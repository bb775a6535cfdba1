package querylog

import "strings"

// summaryWords is the number of leading words kept by Summarize.
const summaryWords = 4

// Summarize reduces a statement to a short preview made of its first four
// whitespace-separated words, joined by single spaces.
//
// Example:
//
//	Summarize("SELECT * FROM users WHERE id = 1") // "SELECT * FROM users"
//	Summarize("COMMIT")                           // "COMMIT"
func Summarize(sql string) string {
	words := strings.Fields(sql)
	if len(words) > summaryWords {
		words = words[:summaryWords]
	}
	return strings.Join(words, " ")
}
