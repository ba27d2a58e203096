// Package knol derives stable card identities from card content.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/knoldeck/internal/parser"
)

// Normalize encodes the entry's fields after lowercasing, trimming and
// normalizing line endings, so cosmetic edits keep the same identity.
// Each field is prefixed with its byte length, so no field text can shift
// a boundary between fields.
func Normalize(e parser.Entry) string {
	var b strings.Builder
	for _, part := range []string{e.Front, e.Back, e.Context} {
		p := strings.TrimSpace(strings.ToLower(strings.ReplaceAll(part, "\r\n", "\n")))
		fmt.Fprintf(&b, "%d:%s", len(p), p)
	}
	return b.String()
}

// Hash returns the SHA-256 of the normalized entry as a hex string.
func Hash(e parser.Entry) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(Normalize(e))))
}

// CardID scopes the content hash to a deck, so the same note imported into
// two decks yields two cards.
func CardID(deckID string, e parser.Entry) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(deckID+"\x00"+Normalize(e))))
}
