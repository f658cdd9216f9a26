package uci

import (
	"strings"
	"unicode"
)

const bestMoveKeyword = "bestmove"

// ExtractBestMove returns the token that follows the first "bestmove" in
// text. The keyword must be followed by exactly one space; anything after
// the token (a ponder clause, other lines) is ignored. An empty string means
// no move was found.
func ExtractBestMove(text string) string {
	idx := strings.Index(text, bestMoveKeyword)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(bestMoveKeyword):]
	if !strings.HasPrefix(rest, " ") {
		return ""
	}
	rest = rest[1:]
	if end := strings.IndexFunc(rest, unicode.IsSpace); end >= 0 {
		return rest[:end]
	}
	return rest
}
