package guard

import (
	"strings"
	"unicode/utf8"
)

// lowSignalTokens are comments not worth a generated reply: bare emoji
// reactions, filler acknowledgments, laughter.
var lowSignalTokens = map[string]struct{}{
	"👍": {}, "👎": {}, "❤️": {}, "😂": {}, "🔥": {},
	"ok": {}, "jaja": {}, "jeje": {}, "xd": {}, "...": {},
	"😍": {}, "🙌": {}, "👏": {}, "💪": {}, "🎉": {},
}

// IsLowSignal reports whether the text is too trivial to act on.
func IsLowSignal(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if utf8.RuneCountInString(t) < 3 {
		return true
	}
	_, ok := lowSignalTokens[t]
	return ok
}
