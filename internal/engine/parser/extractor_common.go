package parser

import (
	"strings"
)

// normalizeCalleeText strips whitespace and newlines from a raw callee
// expression so multi-line selector chains compare equal to single-line ones.
func normalizeCalleeText(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	value = strings.ReplaceAll(value, "\n", "")
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\t", "")
	value = strings.ReplaceAll(value, " ", "")
	return value
}

// BaseCalleeName returns the final identifier of a possibly dotted callee
// expression: "models.train" -> "train".
func BaseCalleeName(callee string) string {
	if idx := strings.LastIndex(callee, "."); idx >= 0 {
		return callee[idx+1:]
	}
	return callee
}
