// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation turns composer output carrying <cite source="src-N"/>
// tags into plain markdown with inline links.
//
// See docs/ARCHITECTURE.md § Citation Rewriter.
package citation

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/marketing-research/pkg/types"
)

var (
	// tagRe matches a citation tag and captures the source id. Quote style,
	// escaped quotes, whitespace, self-closing slash and an explicit
	// </cite> are all optional.
	tagRe = regexp.MustCompile(`(?i)<cite\s+source\s*=\s*\\?["']?\s*([^"'\\\s/>]+)\s*\\?["']?\s*/?>(?:\s*</cite>)?`)

	// strayTagRe catches anything tagRe could not parse, such as a tag
	// without a source attribute.
	strayTagRe = regexp.MustCompile(`(?i)<cite\b[^>]*>|</cite\s*>`)

	// spaceBeforePunctRe finds runs of blanks between a word and the
	// punctuation that follows it.
	spaceBeforePunctRe = regexp.MustCompile(`(\S)[ \t]+([.,;:!?])`)
)

// Lookup resolves a short id to a source. *sources.Registry satisfies it.
type Lookup interface {
	Get(shortID string) (types.Source, bool)
}

// Map is a Lookup backed by a plain map.
type Map map[string]types.Source

// Get implements Lookup.
func (m Map) Get(shortID string) (types.Source, bool) {
	s, ok := m[shortID]
	return s, ok
}

// Result is the outcome of Rewrite.
type Result struct {
	// Text is the report with every tag replaced or removed.
	Text string

	// Sources lists the resolved sources in first citation order.
	Sources []types.Source

	// Dropped lists distinct ids that did not resolve.
	Dropped []string
}

// Final converts r into a FinalReport.
func (r Result) Final() types.FinalReport {
	return types.FinalReport{Text: r.Text, Sources: r.Sources, Dropped: r.Dropped}
}

// Rewrite replaces every citation tag in report with " [display](url)".
// Tags whose id does not resolve, and tags that cannot be parsed, are
// removed and logged at Warn. The output
// never contains a cite tag, and blanks left before punctuation are removed.
func Rewrite(report string, lookup Lookup, logger *zap.Logger) Result {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		res     Result
		b       strings.Builder
		cited   = make(map[string]bool)
		dropped = make(map[string]bool)
		last    int
	)
	b.Grow(len(report))

	for _, m := range tagRe.FindAllStringSubmatchIndex(report, -1) {
		b.WriteString(report[last:m[0]])
		last = m[1]
		id := report[m[2]:m[3]]

		src, ok := lookup.Get(id)
		if !ok || src.URL == "" {
			if !dropped[id] {
				dropped[id] = true
				res.Dropped = append(res.Dropped, id)
			}
			logger.Warn("dropping unresolved citation", zap.String("source", id))
			// Avoid a doubled blank where the tag sat between two words.
			if endsWithBlank(&b) && last < len(report) && isBlank(report[last]) {
				last++
			}
			continue
		}

		if !cited[id] {
			cited[id] = true
			if src.ShortID == "" {
				src.ShortID = id
			}
			res.Sources = append(res.Sources, src)
		}
		if !endsWithBlank(&b) {
			b.WriteByte(' ')
		}
		b.WriteString(link(src, id))
	}
	b.WriteString(report[last:])

	text := strayTagRe.ReplaceAllStringFunc(b.String(), func(tag string) string {
		logger.Warn("dropping malformed citation tag", zap.String("tag", tag))
		return ""
	})
	res.Text = Normalize(text)
	return res
}

// Normalize removes blanks that sit directly before punctuation.
func Normalize(text string) string {
	return spaceBeforePunctRe.ReplaceAllString(text, "$1$2")
}

// IDs returns the distinct source ids cited in report, in first appearance
// order.
func IDs(report string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range tagRe.FindAllStringSubmatch(report, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids
}

// Unresolved returns the distinct cited ids that lookup does not know.
func Unresolved(report string, lookup Lookup) []string {
	var missing []string
	for _, id := range IDs(report) {
		if _, ok := lookup.Get(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func link(src types.Source, id string) string {
	display := src.DisplayText()
	if display == "" {
		display = id
	}
	display = strings.NewReplacer("[", `\[`, "]", `\]`).Replace(display)
	return "[" + display + "](" + src.URL + ")"
}

func endsWithBlank(b *strings.Builder) bool {
	s := b.String()
	return s == "" || isBlank(s[len(s)-1]) || s[len(s)-1] == '\n'
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}
