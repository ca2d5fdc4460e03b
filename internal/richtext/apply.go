package richtext

import (
	"errors"
	"fmt"
)

// Command names match document.execCommand in the browser editor.
type Command string

const (
	CmdBold          Command = "bold"
	CmdItalic        Command = "italic"
	CmdUnderline     Command = "underline"
	CmdUnorderedList Command = "insertUnorderedList"
	CmdOrderedList   Command = "insertOrderedList"
	CmdJustifyLeft   Command = "justifyLeft"
	CmdJustifyCenter Command = "justifyCenter"
	CmdJustifyRight  Command = "justifyRight"
)

var (
	ErrUnknownCommand   = errors.New("unknown editor command")
	ErrInvalidSelection = errors.New("selection out of range")
)

// Selection is the rune range [Start, End) of one block.
type Selection struct {
	Block int
	Start int
	End   int
}

// Line selects the whole of block i.
func Line(d Document, i int) Selection {
	if i < 0 || i >= len(d.Blocks) {
		return Selection{Block: i}
	}
	return Selection{Block: i, Start: 0, End: d.Blocks[i].Len()}
}

var toggles = map[Command]Format{
	CmdBold:      Bold,
	CmdItalic:    Italic,
	CmdUnderline: Underline,
}

// Apply returns a copy of d with cmd applied to sel. Inline formats toggle:
// they are removed when the whole range already carries them and added
// otherwise. List commands toggle the block's list kind; justify commands
// set its alignment. d itself is never modified.
func (d Document) Apply(cmd Command, sel Selection) (Document, error) {
	if sel.Block < 0 || sel.Block >= len(d.Blocks) {
		return d, fmt.Errorf("%w: block %d of %d", ErrInvalidSelection, sel.Block, len(d.Blocks))
	}

	out := d.clone()
	b := &out.Blocks[sel.Block]

	switch cmd {
	case CmdBold, CmdItalic, CmdUnderline:
		if sel.Start < 0 || sel.End > b.Len() || sel.Start > sel.End {
			return d, fmt.Errorf("%w: [%d,%d) of %d", ErrInvalidSelection, sel.Start, sel.End, b.Len())
		}
		*b = toggleFormat(*b, toggles[cmd], sel.Start, sel.End)
	case CmdUnorderedList:
		b.List = toggleList(b.List, ListBullet)
	case CmdOrderedList:
		b.List = toggleList(b.List, ListNumbered)
	case CmdJustifyLeft:
		b.Align = AlignLeft
	case CmdJustifyCenter:
		b.Align = AlignCenter
	case CmdJustifyRight:
		b.Align = AlignRight
	default:
		return d, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	return out, nil
}

func toggleList(current, kind ListKind) ListKind {
	if current == kind {
		return ListNone
	}
	return kind
}

type styledRune struct {
	r rune
	f Format
}

func toggleFormat(b Block, f Format, start, end int) Block {
	if start == end {
		return b
	}

	var chars []styledRune
	for _, run := range b.Runs {
		for _, r := range run.Text {
			chars = append(chars, styledRune{r: r, f: run.Format})
		}
	}

	all := true
	for _, c := range chars[start:end] {
		if !c.f.Has(f) {
			all = false
			break
		}
	}

	for i := start; i < end; i++ {
		if all {
			chars[i].f &^= f
		} else {
			chars[i].f |= f
		}
	}

	runs := make([]Run, 0, len(b.Runs)+2)
	for _, c := range chars {
		if n := len(runs); n > 0 && runs[n-1].Format == c.f {
			runs[n-1].Text += string(c.r)
			continue
		}
		runs = append(runs, Run{Text: string(c.r), Format: c.f})
	}
	b.Runs = runs
	return b.normalize()
}
