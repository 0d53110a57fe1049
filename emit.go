package tsbundle

import (
	"sort"
	"strings"

	"github.com/jward/tsbundle/internal/syntax"
)

// emit writes the selected declarations in discovery order. Each is the
// verbatim source slice with only its own name and the reference
// occurrences whose target was renamed or qualified rewritten, prefixed
// with `export`.
func emit(s *selection, cfg *bundleConfig, banner string) string {
	var blocks []string
	for _, n := range s.order {
		blocks = append(blocks, emitNode(n))
	}

	var b strings.Builder
	if banner = strings.TrimRight(banner, "\n"); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.Join(blocks, "\n\n"))
	if len(blocks) > 0 {
		b.WriteString("\n")
	}

	var tail []string
	for _, a := range s.aliases {
		tail = append(tail, "export { "+a.to.name+" as "+a.name+" };")
	}
	if cfg.preserveDefault && s.defaultNode != nil {
		tail = append(tail, "export default "+s.defaultNode.name+";")
	}
	if len(tail) > 0 {
		if len(blocks) > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(tail, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func emitNode(n *node) string {
	parts := make([]string, 0, len(n.decl.Parts))
	for pi, part := range n.decl.Parts {
		var b strings.Builder
		if part.Doc != "" {
			b.WriteString(part.Doc)
			b.WriteString("\n")
		}
		if part.Anon == syntax.AnonExpression {
			b.WriteString("export type " + n.name + " = unknown;")
		} else {
			b.WriteString("export ")
			b.WriteString(strings.TrimRight(rewrite(n, pi, part), " \t\r\n"))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

type replacement struct {
	start, end int
	text       string
}

// rewrite applies the name and reference substitutions of one part.
func rewrite(n *node, pi int, part *syntax.Decl) string {
	text := part.Text
	var reps []replacement

	switch {
	case part.Anon == syntax.AnonClass || part.Anon == syntax.AnonFunction:
		reps = append(reps, replacement{part.NameStart, part.NameStart, " " + n.name})
	case text[part.NameStart:part.NameEnd] != n.name:
		reps = append(reps, replacement{part.NameStart, part.NameEnd, n.name})
	}

	for _, e := range n.edges {
		if e.part != pi {
			continue
		}
		ref := part.Refs[e.ref]
		written := text[ref.Start:ref.End]
		if e.consumed == len(ref.Parts) {
			if written != e.to.name {
				reps = append(reps, replacement{ref.Start, ref.End, e.to.name})
			}
			continue
		}
		// NS.Enum.Member: the leading parts named the target, the rest
		// are member accesses kept as written.
		head := strings.Join(ref.Parts[:e.consumed], ".")
		if written == ref.Name() {
			if head != e.to.name {
				reps = append(reps, replacement{ref.Start, ref.Start + len(head), e.to.name})
			}
			continue
		}
		rest := strings.Join(ref.Parts[e.consumed:], ".")
		reps = append(reps, replacement{ref.Start, ref.End, e.to.name + "." + rest})
	}

	if len(reps) == 0 {
		return text
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i].start < reps[j].start })
	var b strings.Builder
	last := 0
	for _, r := range reps {
		if r.start < last {
			continue
		}
		b.WriteString(text[last:r.start])
		b.WriteString(r.text)
		last = r.end
	}
	b.WriteString(text[last:])
	return b.String()
}
