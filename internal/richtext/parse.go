package richtext

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type parser struct {
	blocks  []Block
	current Block
	// forced marks a block that is emitted even when empty (list items).
	forced bool
}

type state struct {
	format Format
	align  Align
	list   ListKind
	// inBlock is set inside a div, paragraph or list item, where text is
	// content even when it is only whitespace.
	inBlock bool
}

// Parse reads an HTML fragment as produced by the browser editor.
// Unrecognised elements are transparent; script and style are skipped.
func Parse(fragment string) (Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return Document{}, fmt.Errorf("parse fragment: %w", err)
	}

	p := &parser{}
	for _, n := range nodes {
		p.walk(n, state{})
	}
	p.flush(false)

	return Document{Blocks: p.blocks}, nil
}

// MustParse is Parse for fragments known to be well formed.
func MustParse(fragment string) Document {
	d, err := Parse(fragment)
	if err != nil {
		panic(err)
	}
	return d
}

func (p *parser) start(ctx state, forced bool) {
	p.current = Block{Align: ctx.align, List: ctx.list}
	p.forced = forced
}

// flush emits the current block when it has text, when it was forced, or
// when always is set (a <br> always ends a line).
func (p *parser) flush(always bool) {
	b := p.current.normalize()
	if len(b.Runs) > 0 || p.forced || always {
		p.blocks = append(p.blocks, b)
	}
	p.current = Block{Align: p.current.Align, List: p.current.List}
	p.forced = false
}

func (p *parser) walk(n *html.Node, ctx state) {
	outer := ctx

	switch n.Type {
	case html.TextNode:
		// Whitespace between block elements is markup indentation.
		if !ctx.inBlock && strings.TrimSpace(n.Data) == "" && p.current.Len() == 0 && strings.ContainsAny(n.Data, "\n\r") {
			return
		}
		p.current.Runs = append(p.current.Runs, Run{Text: n.Data, Format: ctx.format})
		return
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			p.walk(c, ctx)
		}
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style:
		return
	case atom.B, atom.Strong:
		ctx.format |= Bold
	case atom.I, atom.Em:
		ctx.format |= Italic
	case atom.U:
		ctx.format |= Underline
	case atom.Br:
		p.flush(true)
		p.start(ctx, false)
		return
	case atom.Ul:
		ctx.list = ListBullet
		ctx.align = alignOf(n, ctx.align)
		p.children(n, ctx)
		return
	case atom.Ol:
		ctx.list = ListNumbered
		ctx.align = alignOf(n, ctx.align)
		p.children(n, ctx)
		return
	case atom.Li:
		ctx.align = alignOf(n, ctx.align)
		ctx.inBlock = true
		if ctx.list == ListNone {
			ctx.list = ListBullet
		}
		p.flush(false)
		p.start(ctx, true)
		p.children(n, ctx)
		p.flush(false)
		p.start(outer, false)
		return
	case atom.Div, atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Pre:
		ctx.align = alignOf(n, ctx.align)
		ctx.inBlock = true
		p.flush(false)
		p.start(ctx, false)
		p.children(n, ctx)
		p.flush(false)
		p.start(outer, false)
		return
	}

	p.children(n, ctx)
}

func (p *parser) children(n *html.Node, ctx state) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c, ctx)
	}
}

// alignOf reads text-align from the style attribute or the legacy align
// attribute, falling back to the inherited value.
func alignOf(n *html.Node, inherited Align) Align {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "style":
			for _, decl := range strings.Split(a.Val, ";") {
				name, value, ok := strings.Cut(decl, ":")
				if !ok || strings.TrimSpace(strings.ToLower(name)) != "text-align" {
					continue
				}
				if al, ok := parseAlign(value); ok {
					return al
				}
			}
		case "align":
			if al, ok := parseAlign(a.Val); ok {
				return al
			}
		}
	}
	return inherited
}

func parseAlign(v string) (Align, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "start", "justify":
		return AlignLeft, true
	case "center":
		return AlignCenter, true
	case "right", "end":
		return AlignRight, true
	}
	return AlignLeft, false
}
