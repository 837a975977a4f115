package diagram

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	reLineBreak = regexp.MustCompile(`(?i)<br\s*/?>|</?(div|p)\b[^>]*>`)
	reTag       = regexp.MustCompile(`<[^>]*>`)
	reCount     = regexp.MustCompile(`(?i)^(\d+)\s+stor(?:y|ies)$`)
)

// Label builds an HTML cell value for name, appending an "N stories" line when
// count is non-nil.
func Label(name string, count *int) string {
	v := html.EscapeString(name)
	if count != nil {
		v += "<br><i>" + CountText(*count) + "</i>"
	}
	return v
}

// CountText renders an estimated story count.
func CountText(n int) string {
	if n == 1 {
		return "1 story"
	}
	return fmt.Sprintf("%d stories", n)
}

// ParseLabel reverses Label on a (possibly hand-edited) cell value. Markup is
// stripped, entities unescaped, and a trailing "N stories" line becomes the count.
func ParseLabel(value string) (name string, count *int) {
	s := reLineBreak.ReplaceAllString(value, "\n")
	s = reTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	if len(lines) > 1 {
		if m := reCount.FindStringSubmatch(lines[len(lines)-1]); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				count = &n
				lines = lines[:len(lines)-1]
			}
		}
	}
	return strings.Join(lines, " "), count
}
