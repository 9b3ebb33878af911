package textproc

import (
	"regexp"
	"strings"
)

var (
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	inlineSpace   = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	spaceAroundNL = regexp.MustCompile(` ?\n ?`)
	manyNewlines  = regexp.MustCompile(`\n{3,}`)
)

// Clean strips control characters and normalizes whitespace. Single line
// breaks and paragraph breaks survive so the recursive splitter can use them.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = controlChars.ReplaceAllString(text, "")
	text = inlineSpace.ReplaceAllString(text, " ")
	text = spaceAroundNL.ReplaceAllString(text, "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
