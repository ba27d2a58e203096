package knol

import (
	"testing"

	"github.com/conorfennell/knoldeck/internal/parser"
)

func TestNormalize(t *testing.T) {
	e := parser.Entry{
		Front:   "  What is HTMX? \r\n",
		Back:    "A library for AJAX.",
		Context: "Web Development",
	}
	want := "13:what is htmx?19:a library for ajax.15:web development"
	if got := Normalize(e); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		// Hash for "1:q1:a1:c"
		want := "28aa2fc5d7807c29499eee3aca27a2fe6ce51d0b3b407f47a68914a59b463eae"
		if got := Hash(parser.Entry{Front: "Q", Back: "A", Context: "C"}); got != want {
			t.Errorf("Hash() = %s, want %s", got, want)
		}
	})

	t.Run("normalization produces same hash", func(t *testing.T) {
		a := parser.Entry{Front: "  what is go? ", Back: "A programming language."}
		b := parser.Entry{Front: "What Is Go?", Back: "A programming language."}
		if Hash(a) != Hash(b) {
			t.Error("expected equal hashes after normalization")
		}
	})

	t.Run("different entries have different hashes", func(t *testing.T) {
		if Hash(parser.Entry{Front: "Card 1"}) == Hash(parser.Entry{Front: "Card 2"}) {
			t.Error("expected different hashes")
		}
	})

	t.Run("newlines cannot move field boundaries", func(t *testing.T) {
		a := parser.Entry{Front: "a\nb", Back: "c"}
		b := parser.Entry{Front: "a", Back: "b\nc"}
		if Hash(a) == Hash(b) {
			t.Error("expected different hashes when text shifts between fields")
		}
		if CardID("d1", a) == CardID("d1", b) {
			t.Error("expected different card IDs when text shifts between fields")
		}
	})
}

func TestCardID(t *testing.T) {
	e := parser.Entry{Front: "hola", Back: "hello"}
	if CardID("d1", e) != CardID("d1", e) {
		t.Error("CardID is not deterministic")
	}
	if CardID("d1", e) == CardID("d2", e) {
		t.Error("CardID should differ between decks")
	}
	if len(CardID("d1", e)) != 64 {
		t.Errorf("CardID length = %d, want 64 hex chars", len(CardID("d1", e)))
	}
}
