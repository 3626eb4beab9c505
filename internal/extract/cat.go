package extract

import (
	"fmt"
	"os"

	"github.com/lu4p/cat"
)

func extractODT(content []byte) (string, error) {
	return extractWithCat(content, ".odt")
}

func extractRTF(content []byte) (string, error) {
	return extractWithCat(content, ".rtf")
}

// extractWithCat reads ODT and RTF documents. The library picks its reader
// from the file extension, so bytes are staged in a temporary file first.
func extractWithCat(content []byte, ext string) (string, error) {
	f, err := os.CreateTemp("", "quizcast-*"+ext)
	if err != nil {
		return "", fmt.Errorf("stage document: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("stage document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("stage document: %w", err)
	}
	text, err := cat.File(f.Name())
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
