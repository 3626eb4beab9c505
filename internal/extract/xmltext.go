package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	// anyTag matches any XML tag.
	anyTag = regexp.MustCompile(`<[^>]*>`)
	// lineBreakTag matches in-paragraph breaks and tabs in OOXML and OpenDocument.
	lineBreakTag = regexp.MustCompile(`<(?:w:br|a:br|text:line-break)[^>]*/?>`)
	tabTag       = regexp.MustCompile(`<(?:w:tab|text:tab)[^>]*/?>`)
)

// paragraphLines renders every match of paragraph as one line of its inner
// text. Line breaks inside a paragraph start a new line.
func paragraphLines(xml string, paragraph *regexp.Regexp) []string {
	var lines []string
	for _, m := range paragraph.FindAllStringSubmatch(xml, -1) {
		inner := lineBreakTag.ReplaceAllString(m[1], "\n")
		inner = tabTag.ReplaceAllString(inner, " ")
		text := html.UnescapeString(anyTag.ReplaceAllString(inner, ""))
		lines = append(lines, strings.Split(text, "\n")...)
	}
	return lines
}
