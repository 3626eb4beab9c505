package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// openDocContentPath is the path to the main content inside OpenDocument zips.
const openDocContentPath = "content.xml"

// textParagraph matches OpenDocument paragraphs and headings.
var textParagraph = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*)?>(.*?)</text:(?:p|h)>`)

// readOpenDocContent returns content.xml from an OpenDocument package.
func readOpenDocContent(content []byte, format string) (string, error) {
	zr, err := openZip(content, format)
	if err != nil {
		return "", err
	}
	data, err := readZipEntry(zr, openDocContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, openDocContentPath)
	}
	return string(data), nil
}

// extractODP extracts text from .odp bytes with one line per text:p or text:h
// element, in document order.
func extractODP(content []byte) (string, error) {
	xml, err := readOpenDocContent(content, "ODP")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(paragraphLines(xml, textParagraph), "\n")), nil
}
