// Package richtext is a serialisable model of the description fragments the
// browser editor produces: blocks of text runs carrying bold, italic and
// underline formats, with per-block alignment and list membership.
package richtext

import "strings"

// Format is a bit set of inline styles.
type Format uint8

const (
	Bold Format = 1 << iota
	Italic
	Underline
)

func (f Format) Has(other Format) bool { return f&other == other }

func (f Format) String() string {
	var parts []string
	if f.Has(Bold) {
		parts = append(parts, "bold")
	}
	if f.Has(Italic) {
		parts = append(parts, "italic")
	}
	if f.Has(Underline) {
		parts = append(parts, "underline")
	}
	if len(parts) == 0 {
		return "plain"
	}
	return strings.Join(parts, "+")
}

type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

func (a Align) String() string {
	switch a {
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return "left"
	}
}

type ListKind uint8

const (
	ListNone ListKind = iota
	ListBullet
	ListNumbered
)

// Run is a stretch of text sharing one format.
type Run struct {
	Text   string `json:"text"`
	Format Format `json:"format,omitempty"`
}

// Block is one line of the editor: a div, a paragraph or a list item.
type Block struct {
	Runs  []Run    `json:"runs"`
	Align Align    `json:"align,omitempty"`
	List  ListKind `json:"list,omitempty"`
}

func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func (b Block) Len() int {
	n := 0
	for _, r := range b.Runs {
		n += len([]rune(r.Text))
	}
	return n
}

// normalize drops empty runs and merges neighbours with equal formats.
func (b Block) normalize() Block {
	out := make([]Run, 0, len(b.Runs))
	for _, r := range b.Runs {
		if r.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Format == r.Format {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		out = nil
	}
	b.Runs = out
	return b
}

type Document struct {
	Blocks []Block `json:"blocks"`
}

func (d Document) clone() Document {
	blocks := make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		b.Runs = append([]Run(nil), b.Runs...)
		blocks[i] = b
	}
	return Document{Blocks: blocks}
}

// PlainText returns the text of every block, one per line.
func (d Document) PlainText() string {
	lines := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		lines[i] = b.Text()
	}
	return strings.Join(lines, "\n")
}

// FromPlainText builds an unformatted document with one block per line.
func FromPlainText(s string) Document {
	if s == "" {
		return Document{}
	}
	var d Document
	for _, line := range strings.Split(s, "\n") {
		d.Blocks = append(d.Blocks, Block{Runs: []Run{{Text: line}}}.normalize())
	}
	return d
}

// WithLines replaces the text of each block with the matching line,
// keeping the block's alignment and list kind. A changed line takes the
// format of the block's first run. Extra lines become plain blocks.
func (d Document) WithLines(lines []string) Document {
	out := Document{Blocks: make([]Block, 0, len(lines))}
	for i, line := range lines {
		if i >= len(d.Blocks) {
			out.Blocks = append(out.Blocks, Block{Runs: []Run{{Text: line}}}.normalize())
			continue
		}

		old := d.Blocks[i]
		if old.Text() == line {
			old.Runs = append([]Run(nil), old.Runs...)
			out.Blocks = append(out.Blocks, old)
			continue
		}

		var f Format
		if len(old.Runs) > 0 {
			f = old.Runs[0].Format
		}
		out.Blocks = append(out.Blocks, Block{
			Runs:  []Run{{Text: line, Format: f}},
			Align: old.Align,
			List:  old.List,
		}.normalize())
	}
	return out
}
