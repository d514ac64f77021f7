package sqlgen

import (
	"regexp"
	"strings"
)

// ExtractSQL pulls a SQL statement out of model output, trying in order:
// 1. ```sql ... ``` code block
// 2. generic ``` ... ``` block whose content starts with SELECT or WITH
// 3. multi-line CTE or SELECT statement ending at LIMIT, semicolon, or EOF
// 4. single-line SELECT as a last resort
// Returns "" when nothing SQL-shaped is found.
var (
	reCTEBlock    = regexp.MustCompile(`(?is)(WITH\s+\w+\s+AS\s*\(.+?(?:LIMIT\s+\d+|;\s*$|\z))`)
	reSelectBlock = regexp.MustCompile(`(?is)(SELECT\s+.+?FROM\s+.+?(?:LIMIT\s+\d+|;\s*$|\z))`)
	reSelectLine  = regexp.MustCompile(`(?i)(SELECT\s+\S.+?\bFROM\b\s+\S+)`)
)

func ExtractSQL(text string) string {
	if sql := fromSQLFence(text); sql != "" {
		return sql
	}
	if sql := fromGenericFence(text); sql != "" {
		return sql
	}
	if m := reCTEBlock.FindString(text); m != "" {
		return strings.TrimSuffix(strings.TrimSpace(m), ";")
	}
	if m := reSelectBlock.FindString(text); m != "" {
		candidate := strings.TrimSuffix(strings.TrimSpace(m), ";")
		if strings.Contains(strings.ToUpper(candidate), " FROM ") {
			return candidate
		}
	}
	if m := reSelectLine.FindString(text); m != "" {
		return strings.TrimSuffix(strings.TrimSpace(m), ";")
	}
	return ""
}

func fromSQLFence(text string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "```sql")
	if idx == -1 {
		return ""
	}
	body := text[idx+len("```sql"):]
	if len(body) > 0 && body[0] == '\n' {
		body = body[1:]
	}
	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

func fromGenericFence(text string) string {
	parts := strings.Split(text, "```")
	for i := 1; i < len(parts); i += 2 {
		candidate := strings.TrimSpace(parts[i])
		// drop a language tag line such as "sql\nSELECT ..."
		if nl := strings.Index(candidate, "\n"); nl != -1 {
			firstLine := strings.ToUpper(strings.TrimSpace(candidate[:nl]))
			if !strings.Contains(firstLine, "SELECT") && !strings.Contains(firstLine, "WITH") {
				candidate = strings.TrimSpace(candidate[nl:])
			}
		}
		up := strings.ToUpper(candidate)
		if strings.HasPrefix(up, "SELECT") || strings.HasPrefix(up, "WITH") {
			return strings.TrimSuffix(strings.TrimSpace(candidate), ";")
		}
	}
	return ""
}
