package quiz

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses horizontal runs", "a  \t b", "a b"},
		{"collapses blank runs to one separator", "a\n\n\n\nb", "a\n\nb"},
		{"keeps single line breaks", "a\nb\nc", "a\nb\nc"},
		{"keeps paragraph separator", "a\n\nb", "a\n\nb"},
		{"strips trailing spaces", "a \nb\t\n", "a\nb\n"},
		{"whitespace-only lines become blank", "a\n \n \n \nb", "a\n\nb"},
		{"converts CRLF", "x\r\n\r\n\r\ny", "x\n\ny"},
		{"non-breaking space", "a  b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_composesArabicHamza(t *testing.T) {
	// alef + combining hamza above composes to U+0623, the first marker letter.
	got := Normalize("\u0627\u0654) x")
	if got != "\u0623) x" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestNormalize_idempotent(t *testing.T) {
	in := "1-  Q?\n\n\n\na)  x \nb) y\nAnswer:   a"
	once := Normalize(in)
	if twice := Normalize(once); twice != once {
		t.Errorf("second pass changed text: %q -> %q", once, twice)
	}
}
