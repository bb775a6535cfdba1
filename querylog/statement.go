package querylog

import (
	"regexp"
	"strings"
)

// Regex patterns for query sanitization.
var (
	// stringLiteralRegex matches single-quoted strings, handling escaped quotes.
	// Example matches: 'hello', 'it\'s', 'foo''bar'
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// numericLiteralRegex matches numeric literals (integers and floats).
	// Example matches: 123, 45.67, 0.5
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)

	// hexLiteralRegex matches hex literals.
	// Example matches: 0xDEADBEEF, 0xFF, 0x1a2b
	hexLiteralRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// ExtractOperation returns the SQL command (first word) of a query in upper
// case, or "" for an empty query. It is used for the db.operation attribute.
//
// Example:
//
//	ExtractOperation("insert into users") // "INSERT"
//	ExtractOperation("")                  // ""
func ExtractOperation(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	spaceIdx := strings.IndexAny(query, " \t\n\r")
	if spaceIdx == -1 {
		return strings.ToUpper(query)
	}

	return strings.ToUpper(query[:spaceIdx])
}

// DefaultQuerySanitizer replaces literal values with placeholders so that
// sensitive data does not reach logs or traces.
//
// What it sanitizes:
//   - String literals: 'john' → '?'
//   - Numeric literals: 123, 45.67 → ?
//   - Hex literals: 0xDEADBEEF → ?
//
// Example:
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123")
//	// returns "SELECT * FROM users WHERE id = ?"
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = numericLiteralRegex.ReplaceAllString(query, "?")
	query = hexLiteralRegex.ReplaceAllString(query, "?")
	return query
}

// clauseKeywords start a new line when they appear outside parentheses.
var clauseKeywords = map[string]bool{
	"SELECT":    true,
	"FROM":      true,
	"WHERE":     true,
	"GROUP":     true,
	"ORDER":     true,
	"HAVING":    true,
	"LIMIT":     true,
	"OFFSET":    true,
	"UNION":     true,
	"EXCEPT":    true,
	"INTERSECT": true,
	"VALUES":    true,
	"SET":       true,
	"RETURNING": true,
	"WITH":      true,
	"JOIN":      true,
}

// joinModifiers may precede JOIN; the line break goes before the first one.
var joinModifiers = map[string]bool{
	"LEFT":    true,
	"RIGHT":   true,
	"INNER":   true,
	"OUTER":   true,
	"FULL":    true,
	"CROSS":   true,
	"NATURAL": true,
}

// FormatStatement lays a statement out one clause per line for human
// reading. Top-level clause keywords start a new line, AND/OR conditions are
// indented, and quoted text and parenthesised groups are kept as they are.
//
// Example:
//
//	FormatStatement("SELECT * FROM users WHERE id = 1 AND active")
//	// SELECT *
//	// FROM users
//	// WHERE id = 1
//	//   AND active
func FormatStatement(sql string) string {
	tokens := tokenize(sql)
	if len(tokens) == 0 {
		return ""
	}

	var b strings.Builder
	depth := 0
	prev := ""
	for i, tok := range tokens {
		upper := strings.ToUpper(tok)

		if i > 0 {
			switch {
			case depth > 0:
				b.WriteByte(' ')
			case joinModifiers[upper] && !joinModifiers[prev]:
				b.WriteByte('\n')
			case upper == "JOIN" && joinModifiers[prev]:
				b.WriteByte(' ')
			case clauseKeywords[upper] && !startsClause(prev, upper):
				b.WriteByte('\n')
			case upper == "AND" && tokenAt(tokens, i-2) == "BETWEEN":
				b.WriteByte(' ')
			case upper == "AND" || upper == "OR":
				b.WriteString("\n  ")
			default:
				b.WriteByte(' ')
			}
		}

		b.WriteString(tok)
		depth += parenDelta(tok)
		if depth < 0 {
			depth = 0
		}
		prev = upper
	}
	return b.String()
}

// startsClause reports whether kw continues the clause opened by prev, as in
// "UNION ALL SELECT" where the set operator and its SELECT share a line.
func startsClause(prev, kw string) bool {
	if kw != "SELECT" {
		return false
	}
	switch prev {
	case "UNION", "ALL", "EXCEPT", "INTERSECT", "DISTINCT":
		return true
	}
	return false
}

// tokenAt returns the upper-cased token at i, or "" when i is out of range.
// FormatStatement uses it to spot "x BETWEEN 1 AND 2".
func tokenAt(tokens []string, i int) string {
	if i < 0 || i >= len(tokens) {
		return ""
	}
	return strings.ToUpper(tokens[i])
}

// parenDelta counts the parentheses a token opens or closes, ignoring any
// inside quotes.
func parenDelta(tok string) int {
	delta := 0
	var quote rune
	for _, r := range tok {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			delta++
		case r == ')':
			delta--
		}
	}
	return delta
}

// tokenize splits sql on whitespace, keeping quoted sections (including the
// whitespace inside them) within a single token.
func tokenize(sql string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range sql {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
