package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	odsTable = regexp.MustCompile(`(?s)<table:table(?:\s[^>]*)?>(.*?)</table:table>`)
	odsRow   = regexp.MustCompile(`(?s)<table:table-row(?:\s[^>]*)?>(.*?)</table:table-row>`)
	// odsCell matches full and self-closing cells; repeated cells carry a count attribute.
	odsCell     = regexp.MustCompile(`(?s)<table:(?:covered-)?table-cell((?:\s[^>]*?)?)(?:/>|>(.*?)</table:(?:covered-)?table-cell>)`)
	odsRepeated = regexp.MustCompile(`table:number-columns-repeated="(\d+)"`)
)

// maxRepeatedCells bounds column repetition; spreadsheets pad rows to 1024+ empty columns.
const maxRepeatedCells = 64

// extractODS reads every table row of an .ods file into cells. Paragraphs in
// one cell are joined with a space. The empty run spreadsheets pad rows with
// is dropped, then rows are padded to their table's widest row.
func extractODS(content []byte) ([][]string, error) {
	xml, err := readOpenDocContent(content, "ODS")
	if err != nil {
		return nil, err
	}
	var out [][]string
	for _, t := range odsTable.FindAllStringSubmatch(xml, -1) {
		out = append(out, padRows(odsRows(t[1]))...)
	}
	return out, nil
}

func odsRows(table string) [][]string {
	var rows [][]string
	for _, r := range odsRow.FindAllStringSubmatch(table, -1) {
		var cells []string
		for _, c := range odsCell.FindAllStringSubmatch(r[1], -1) {
			text := strings.Join(paragraphLines(c[2], textParagraph), " ")
			repeat := 1
			if m := odsRepeated.FindStringSubmatch(c[1]); m != nil {
				repeat, _ = strconv.Atoi(m[1])
				repeat = min(max(repeat, 1), maxRepeatedCells)
			}
			for i := 0; i < repeat; i++ {
				cells = append(cells, text)
			}
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return rows
}
