package richtext

import (
	"html"
	"strings"
)

// HTML renders the canonical fragment: one div per plain block, list
// blocks grouped into ul/ol, inline formats nested as b > i > u. Parse
// reads it back to an equal document.
func (d Document) HTML() string {
	var sb strings.Builder

	for i := 0; i < len(d.Blocks); {
		b := d.Blocks[i]
		if b.List == ListNone {
			writeBlock(&sb, "div", b)
			i++
			continue
		}

		tag := "ul"
		if b.List == ListNumbered {
			tag = "ol"
		}
		sb.WriteString("<" + tag + ">")
		for ; i < len(d.Blocks) && d.Blocks[i].List == b.List; i++ {
			writeBlock(&sb, "li", d.Blocks[i])
		}
		sb.WriteString("</" + tag + ">")
	}

	return sb.String()
}

func writeBlock(sb *strings.Builder, tag string, b Block) {
	sb.WriteString("<" + tag)
	if b.Align != AlignLeft {
		sb.WriteString(` style="text-align: ` + b.Align.String() + `"`)
	}
	sb.WriteString(">")

	if b.Len() == 0 {
		sb.WriteString("<br>")
	}
	for _, r := range b.Runs {
		writeRun(sb, r)
	}

	sb.WriteString("</" + tag + ">")
}

var inlineTags = []struct {
	format Format
	tag    string
}{
	{Bold, "b"},
	{Italic, "i"},
	{Underline, "u"},
}

func writeRun(sb *strings.Builder, r Run) {
	for _, t := range inlineTags {
		if r.Format.Has(t.format) {
			sb.WriteString("<" + t.tag + ">")
		}
	}
	sb.WriteString(html.EscapeString(r.Text))
	for i := len(inlineTags) - 1; i >= 0; i-- {
		if r.Format.Has(inlineTags[i].format) {
			sb.WriteString("</" + inlineTags[i].tag + ">")
		}
	}
}
