package quiz

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/quizcast/internal/models"
)

func TestExtract_lowerParen(t *testing.T) {
	res := Extract("1- What is 2+2?\na) 3\nb) 4\nc) 5\nAnswer: b")
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1 (skips %+v)", len(res.Records), res.Skips)
	}
	rec := res.Records[0]
	if !reflect.DeepEqual(rec.Options, []string{"3", "4", "5"}) {
		t.Errorf("options = %q", rec.Options)
	}
	if rec.CorrectOptionID != 1 {
		t.Errorf("correct = %d, want 1", rec.CorrectOptionID)
	}
	if rec.Question != "1- What is 2+2?" {
		t.Errorf("question = %q", rec.Question)
	}
	if res.Matches["lower-paren"] != 1 {
		t.Errorf("matches = %v", res.Matches)
	}
}

func TestExtract_alphabets(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		question string
		options  []string
		correct  int
	}{
		{
			name:     "arabic letters",
			text:     "١- ما عاصمة مصر؟\nأ) الرياض\nب) القاهرة\nج) دمشق\nالإجابة: ب",
			question: "١- ما عاصمة مصر؟",
			options:  []string{"الرياض", "القاهرة", "دمشق"},
			correct:  1,
		},
		{
			name:     "upper dot with lowercase answer",
			text:     "3. Capital of France?\nA. Berlin\nB. Paris\nAnswer: b",
			question: "3. Capital of France?",
			options:  []string{"Berlin", "Paris"},
			correct:  1,
		},
		{
			name:     "digits with arabic-indic answer",
			text:     "Which is prime?\n1) 4\n2) 6\n3) 7\nAnswer: ٣",
			question: "Which is prime?",
			options:  []string{"4", "6", "7"},
			correct:  2,
		},
		{
			name:     "answer with closing paren and lowercase keyword",
			text:     "7- Pick one\na) x\nb) y\nanswer: a)",
			question: "7- Pick one",
			options:  []string{"x", "y"},
			correct:  0,
		},
		{
			name:     "lower dot",
			text:     "2. Largest planet?\na. Mars\nb. Jupiter\nc. Venus\nd. Earth\nAnswers: b",
			question: "2. Largest planet?",
			options:  []string{"Mars", "Jupiter", "Venus", "Earth"},
			correct:  1,
		},
		{
			name:     "heading above the question is dropped",
			text:     "Chapter 3\n1- Q?\na) x\nb) y\nAnswer: a",
			question: "1- Q?",
			options:  []string{"x", "y"},
			correct:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.text)
			if len(res.Records) != 1 {
				t.Fatalf("records: got %d, want 1 (skips %+v)", len(res.Records), res.Skips)
			}
			rec := res.Records[0]
			if rec.Question != tt.question {
				t.Errorf("question = %q, want %q", rec.Question, tt.question)
			}
			if !reflect.DeepEqual(rec.Options, tt.options) {
				t.Errorf("options = %q, want %q", rec.Options, tt.options)
			}
			if rec.CorrectOptionID != tt.correct {
				t.Errorf("correct = %d, want %d", rec.CorrectOptionID, tt.correct)
			}
		})
	}
}

func TestExtract_multipleQuestionsKeepOrder(t *testing.T) {
	text := "Quiz\n\n" +
		"1- First?\na) x\nb) y\nAnswer: a\n\n\n" +
		"2- Second?\na) p\nb) q\nc) r\nAnswer: c\n\n" +
		"3- Third?\na) m\nb) n\nAnswer: b\n"
	res := Extract(text)
	if len(res.Records) != 3 {
		t.Fatalf("records: got %d, want 3 (skips %+v)", len(res.Records), res.Skips)
	}
	want := []string{"1- First?", "2- Second?", "3- Third?"}
	for i, rec := range res.Records {
		if rec.Question != want[i] {
			t.Errorf("record %d question = %q, want %q", i, rec.Question, want[i])
		}
	}
	if res.Records[1].CorrectOptionID != 2 {
		t.Errorf("second correct = %d", res.Records[1].CorrectOptionID)
	}
}

func TestExtract_answerOutOfRangeIsSkipped(t *testing.T) {
	res := Extract("1- Q?\na) x\nb) y\nAnswer: d")
	if len(res.Records) != 0 {
		t.Fatalf("records: got %d, want 0", len(res.Records))
	}
	if len(res.Skips) != 1 || res.Skips[0].Reason != models.SkipAnswerOutOfRange {
		t.Errorf("skips = %+v", res.Skips)
	}
}

func TestExtract_sixOptionBlockIsSkipped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"letters", "1- Pick six?\na) one\nb) two\nc) three\nd) four\ne) five\nf) six\nAnswer: a"},
		{"digits", "1- Pick six?\n1) one\n2) two\n3) three\n4) four\n5) five\n6) six\nAnswer: 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.text)
			if len(res.Records) != 0 {
				t.Fatalf("records = %+v, want none", res.Records)
			}
			if len(res.Skips) != 1 || res.Skips[0].Reason != models.SkipTooManyOptions {
				t.Errorf("skips = %+v", res.Skips)
			}
		})
	}
}

func TestExtract_fiveOptionsStillAccepted(t *testing.T) {
	res := Extract("1- Pick five?\na) one\nb) two\nc) three\nd) four\ne) five\nAnswer: e")
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1 (skips %+v)", len(res.Records), res.Skips)
	}
	rec := res.Records[0]
	if rec.Question != "1- Pick five?" || len(rec.Options) != 5 || rec.CorrectOptionID != 4 {
		t.Errorf("record = %+v", rec)
	}
}

func TestExtract_noQuizBlocks(t *testing.T) {
	res := Extract("Just a paragraph.\n\nAnother one with a) inline marker.")
	if len(res.Records) != 0 || len(res.Skips) != 0 {
		t.Errorf("got records %+v skips %+v", res.Records, res.Skips)
	}
}

func TestExtract_repeatedBlockYieldsOneRecord(t *testing.T) {
	block := "5- Repeated question?\na) yes\nb) no\nAnswer: a"
	res := Extract(block + "\n\n" + block)
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Records))
	}
	if len(res.Skips) != 1 || res.Skips[0].Reason != models.SkipDuplicate {
		t.Errorf("skips = %+v", res.Skips)
	}
}

// Known approximation: questions are identified by their first 50 runes, so
// two distinct questions with a long shared prefix collapse into the first.
func TestExtract_fingerprintCollapsesSharedPrefix(t *testing.T) {
	prefix := strings.Repeat("Which of the following statements ", 2)
	text := "1- " + prefix + "is true?\na) x\nb) y\nAnswer: a\n\n" +
		"1- " + prefix + "is false?\na) p\nb) q\nAnswer: b"
	res := Extract(text)
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d, want 1", len(res.Records))
	}
	if !strings.HasSuffix(res.Records[0].Question, "is true?") {
		t.Errorf("first candidate should win, got %q", res.Records[0].Question)
	}
}

func TestExtract_recordsSatisfyInvariants(t *testing.T) {
	text := "1- A?\na) x\nAnswer: a\n\n" +
		"2- B?\na) x\nb) y\nc) z\nd) w\ne) v\nAnswer: e\n\n" +
		"3- C?\n1. one\n2. two\nAnswer: 2"
	res := Extract(text)
	if len(res.Records) != 3 {
		t.Fatalf("records: got %d, want 3 (skips %+v)", len(res.Records), res.Skips)
	}
	for _, rec := range res.Records {
		if !rec.Valid() {
			t.Errorf("invalid record %+v", rec)
		}
	}
	// single option gets the filler
	if got := res.Records[0].Options; len(got) != 2 || got[1] != DefaultFiller {
		t.Errorf("options = %q", got)
	}
}

func TestExtract_customGrammarsAndFiller(t *testing.T) {
	text := "1- A?\na) x\nAnswer: a"
	res := Extract(text, WithGrammars([]Grammar{NewGrammar("only-lower", AlphabetLower, ')')}), WithFiller("None"))
	if len(res.Records) != 1 {
		t.Fatalf("records: got %d", len(res.Records))
	}
	if got := res.Records[0].Options[1]; got != "None" {
		t.Errorf("filler = %q", got)
	}
	if _, ok := res.Matches["lower-paren"]; ok {
		t.Error("default grammars should not run")
	}
}

func TestAlphabet_Index(t *testing.T) {
	tests := []struct {
		alphabet Alphabet
		token    string
		want     int
	}{
		{AlphabetLower, "a", 0},
		{AlphabetLower, "C", 2},
		{AlphabetUpper, "D", 3},
		{AlphabetArabic, "أ", 0},
		{AlphabetArabic, "ي", 9},
		{AlphabetArabic, "x", -1},
		{AlphabetDigit, "1", 0},
		{AlphabetDigit, "٩", 8},
		{AlphabetUnknown, "a", -1},
	}
	for _, tt := range tests {
		if got := tt.alphabet.Index(tt.token); got != tt.want {
			t.Errorf("%s.Index(%q) = %d, want %d", tt.alphabet, tt.token, got, tt.want)
		}
	}
}

func TestAlphabet_splitOptionsJoinsContinuationLines(t *testing.T) {
	got := AlphabetLower.splitOptions("a) first\ncontinued here\nb) second")
	want := []string{"first continued here", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitOptions = %q, want %q", got, want)
	}
}
