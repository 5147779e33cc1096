// Package chat holds the append-only conversation log, the answer
// formatter, and the canned question and fallback pools.
package chat

import (
	"regexp"
	"strings"
)

// The formatter rules rewrite a raw analysis answer into readable
// paragraphs. Each rule either inserts paragraph breaks before a
// structural marker or canonicalizes a marker outright; the trailing
// collapse pass squashes any run of blank lines back to a single break,
// which keeps the whole chain idempotent.
var (
	numberedBoldRe = regexp.MustCompile(`(\d+\.\s\*\*[^*]+\*\*)`)
	boldHeaderRe   = regexp.MustCompile(`(\*\*[^*]+:\*\*)`)
	listMarkerRe   = regexp.MustCompile(`([^\n])(\d+\.\s)`)
	takeawaysRe    = regexp.MustCompile(`(\*\*)?Key Takeaways:(\*\*)?`)
	conclusionRe   = regexp.MustCompile(`(Overall,|In conclusion,)`)
	lineEndSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	breakRunRe     = regexp.MustCompile(`\n{3,}`)
)

// FormatAnswer normalizes an analysis answer for display. Numbered bold
// items, bold section headers, list markers, the Key Takeaways header and
// concluding phrases each get their own paragraph; runs of blank lines
// collapse to one. Formatting an already formatted answer is a no-op.
func FormatAnswer(answer string) string {
	out := numberedBoldRe.ReplaceAllString(answer, "\n\n${1}")
	out = boldHeaderRe.ReplaceAllString(out, "\n\n${1}")
	out = listMarkerRe.ReplaceAllString(out, "${1}\n${2}")
	out = takeawaysRe.ReplaceAllString(out, "\n\n**Key Takeaways:**")
	out = conclusionRe.ReplaceAllString(out, "\n\n${1}")
	out = lineEndSpaceRe.ReplaceAllString(out, "\n")
	out = breakRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
