// Package parser reads plain-text decks. A card starts with a "Q:" line,
// followed by optional "A:" and "C:" blocks; "---" or the next "Q:" ends it.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Entry is the content of one card as written in a deck file.
type Entry struct {
	Front   string
	Back    string
	Context string
}

type field int

const (
	none field = iota
	front
	back
	context
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"Q:", front},
	{"A:", back},
	{"C:", context},
}

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries. Text outside a
// card is ignored.
func Parse(r io.Reader) ([]Entry, error) {
	p := &entryBuilder{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.finish()
	return p.entries, nil
}

type entryBuilder struct {
	entries []Entry
	cur     Entry
	field   field
	block   []string
}

func (b *entryBuilder) line(line string) {
	if strings.TrimRight(line, " \t") == "---" {
		b.finish()
		return
	}
	for _, p := range prefixes {
		if !strings.HasPrefix(line, p.prefix) {
			continue
		}
		b.flush()
		if p.field == front && b.field != none {
			b.finish()
		}
		b.field = p.field
		b.block = append(b.block, strings.TrimPrefix(line[len(p.prefix):], " "))
		return
	}
	if b.field != none {
		b.block = append(b.block, line)
	}
}

// flush stores the pending block in the current field.
func (b *entryBuilder) flush() {
	if len(b.block) == 0 {
		return
	}
	content := strings.TrimRight(strings.Join(b.block, "\n"), "\n")
	switch b.field {
	case front:
		b.cur.Front = content
	case back:
		b.cur.Back = content
	case context:
		b.cur.Context = content
	}
	b.block = nil
}

func (b *entryBuilder) finish() {
	b.flush()
	if b.cur.Front != "" {
		b.entries = append(b.entries, b.cur)
	}
	b.cur = Entry{}
	b.field = none
}
