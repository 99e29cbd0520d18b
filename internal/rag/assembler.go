package rag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"research-rag/internal/indexer"
)

const snippetRunes = 200

// NoRecordsMarker stands in for the experiment block when no records apply.
const NoRecordsMarker = "(no experiment records available)"

const groundedSystem = "You are a research assistant answering questions about a library of scientific papers and experiment records. " +
	"Answer using only facts stated in the numbered sources and experiment records provided. " +
	"If they do not contain enough information, say so plainly."

const exploratorySystem = "You are a research assistant helping a scientist explore ideas grounded in a library of scientific papers and experiment records. " +
	"Start from the numbered sources and experiment records provided. You may propose hypotheses, connections and next experiments beyond what they state, " +
	"but mark speculation clearly as such."

const citationInstructions = `INSTRUCTIONS:
- Cite every fact taken from a source with its bracketed label, for example [1] or [1][2].
- Use only the labels listed above. Never invent new labels.
- Do not add a references or bibliography section at the end; the source list is attached separately.`

// Assembly is a prompt ready for the language model plus its citation list.
type Assembly struct {
	System    string
	Prompt    string
	Citations []Citation
}

type labelGroup struct {
	citation Citation
	texts    []string
}

// Assemble builds the prompt for question from ranked passages and records.
// Labels are assigned in rank order of first appearance of each
// (filename, page) pair; later passages of the same pair are folded under it.
// The citation bookkeeping is independent of mode.
func Assemble(passages []Passage, records []Record, question string, mode Mode) Assembly {
	groups := make([]*labelGroup, 0, len(passages))
	byKey := make(map[string]*labelGroup, len(passages))

	for _, p := range passages {
		key := sourceKey(p)
		if g, ok := byKey[key]; ok {
			g.texts = append(g.texts, p.Text)
			continue
		}
		g := &labelGroup{
			citation: Citation{
				Label:         len(groups) + 1,
				Title:         p.Title,
				Source:        p.Filename,
				Page:          p.Page,
				TracingNumber: p.TracingNumber,
				Snippet:       snippet(p.Text),
			},
			texts: []string{p.Text},
		}
		groups = append(groups, g)
		byKey[key] = g
	}

	var b strings.Builder
	b.WriteString("SOURCES:\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "[%d] %s (%s)\n", g.citation.Label, displayTitle(g.citation), pageLabel(g.citation.Page))
		b.WriteString(strings.Join(g.texts, "\n...\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("EXPERIMENT RECORDS:\n")
	if len(records) == 0 {
		b.WriteString(NoRecordsMarker)
		b.WriteString("\n")
	}
	for _, r := range records {
		fmt.Fprintf(&b, "- %s: %s\n", r.ID, r.Text)
	}

	b.WriteString("\nQUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(citationInstructions)
	b.WriteString("\n")

	citations := make([]Citation, len(groups))
	for i, g := range groups {
		citations[i] = g.citation
	}

	system := groundedSystem
	if mode == ModeExploratory {
		system = exploratorySystem
	}
	return Assembly{System: system, Prompt: b.String(), Citations: citations}
}

var labelRefPattern = regexp.MustCompile(`\[(\d+(?:\s*,\s*\d+)*)\]`)

// MarkReferenced flags the citations whose labels appear in answer. It never
// changes labels or order.
func MarkReferenced(answer string, citations []Citation) {
	used := make(map[int]struct{})
	for _, m := range labelRefPattern.FindAllStringSubmatch(answer, -1) {
		for _, part := range strings.Split(m[1], ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				used[n] = struct{}{}
			}
		}
	}
	for i := range citations {
		_, citations[i].Referenced = used[citations[i].Label]
	}
}

// sourceKey identifies a (filename, page) pair. Passages without a filename
// fall back to their document number.
func sourceKey(p Passage) string {
	src := p.Filename
	if src == "" {
		src = "#" + strconv.Itoa(p.TracingNumber)
	}
	return src + "\x00" + p.Page
}

func displayTitle(c Citation) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Source != "":
		return c.Source
	default:
		return "untitled"
	}
}

func pageLabel(page string) string {
	if page == "" || page == indexer.PageUnknown {
		return "page unknown"
	}
	return "page " + page
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= snippetRunes {
		return text
	}
	return string([]rune(text)[:snippetRunes]) + "..."
}
