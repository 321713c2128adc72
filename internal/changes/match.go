package changes

import (
	"regexp"
	"strings"
	"sync"
)

var (
	patternCacheMu sync.Mutex
	patternCache   = make(map[string]*regexp.Regexp)
)

// Match reports whether path matches any of the glob patterns. ** crosses
// directory separators, * stays within one segment.
func Match(path string, patterns Patterns) bool {
	for _, pattern := range patterns {
		re := compilePattern(pattern)
		if re != nil && re.MatchString(path) {
			return true
		}
	}
	return false
}

func compilePattern(pattern string) *regexp.Regexp {
	patternCacheMu.Lock()
	defer patternCacheMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re
	}
	expr := strings.ReplaceAll(pattern, ".", `\.`)
	expr = strings.ReplaceAll(expr, "**", "\x00")
	expr = strings.ReplaceAll(expr, "*", `[^/]*`)
	expr = strings.ReplaceAll(expr, "\x00", `.*`)
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		re = nil
	}
	patternCache[pattern] = re
	return re
}
