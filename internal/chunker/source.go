package chunker

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mdsalman850/co-teachers-sub003/internal/document"
	"github.com/mdsalman850/co-teachers-sub003/internal/vocab"
)

// headingPattern matches a chapter/unit/section heading at a line start.
var headingPattern = regexp.MustCompile(`(?im)^(?:chapter|unit|section|lesson|part)\s+(?:\d+|[ivxlc]+)\b`)

const maxTitleLen = 80

// marker is a page marker located by rune offsets; end includes the
// trailing newline.
type marker struct {
	start, end int
	page       int
}

type section struct {
	start, end int
	title      string
}

// source is the normalized text addressed by rune offset.
type source struct {
	text    string
	runes   []rune
	markers []marker
}

func newSource(text string) *source {
	s := &source{text: text, runes: []rune(text)}

	matches := document.MarkerPattern.FindAllStringSubmatchIndex(text, -1)
	offsets := make([]int, 0, 2*len(matches))
	for _, m := range matches {
		offsets = append(offsets, m[0], m[1])
	}
	runeOffs := runeOffsets(text, offsets)
	for i, m := range matches {
		page, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		s.markers = append(s.markers, marker{start: runeOffs[2*i], end: runeOffs[2*i+1], page: page})
	}
	return s
}

// runeOffsets converts ascending byte offsets into rune offsets.
func runeOffsets(text string, byteOffs []int) []int {
	out := make([]int, len(byteOffs))
	b, r := 0, 0
	for i, off := range byteOffs {
		for b < off && b < len(text) {
			_, size := utf8.DecodeRuneInString(text[b:])
			b += size
			r++
		}
		out[i] = r
	}
	return out
}

// sections splits the text at heading lines. A page marker that directly
// precedes a heading stays with the heading.
func (s *source) sections() []section {
	locs := headingPattern.FindAllStringIndex(s.text, -1)
	byteStarts := make([]int, len(locs))
	for i, loc := range locs {
		byteStarts[i] = loc[0]
	}
	starts := runeOffsets(s.text, byteStarts)

	type cut struct{ at, heading int }
	var cuts []cut
	for _, h := range starts {
		at := h
		if m, ok := s.markerEndingAt(h); ok {
			at = m.start
		}
		if len(cuts) > 0 && cuts[len(cuts)-1].at == at {
			continue
		}
		cuts = append(cuts, cut{at: at, heading: h})
	}

	var out []section
	prev, title := 0, ""
	for _, c := range cuts {
		if c.at > prev {
			out = append(out, section{start: prev, end: c.at, title: title})
		}
		prev, title = c.at, s.title(c.heading)
	}
	if prev < len(s.runes) {
		out = append(out, section{start: prev, end: len(s.runes), title: title})
	}
	return out
}

// title returns the heading line starting at h, cut at the first sentence
// break and capped in length.
func (s *source) title(h int) string {
	end := h
	for end < len(s.runes) && s.runes[end] != '\n' && end-h < maxTitleLen {
		if s.runes[end] == '.' && (end+1 == len(s.runes) || unicode.IsSpace(s.runes[end+1])) {
			break
		}
		end++
	}
	return strings.TrimSpace(string(s.runes[h:end]))
}

func (s *source) markerEndingAt(p int) (marker, bool) {
	i := sort.Search(len(s.markers), func(i int) bool { return s.markers[i].end >= p })
	if i < len(s.markers) && s.markers[i].end == p {
		return s.markers[i], true
	}
	return marker{}, false
}

// markerAt returns the marker whose span [start, end) contains p.
func (s *source) markerAt(p int) (marker, bool) {
	i := sort.Search(len(s.markers), func(i int) bool { return s.markers[i].end > p })
	if i < len(s.markers) && s.markers[i].start <= p {
		return s.markers[i], true
	}
	return marker{}, false
}

// pageAt returns the page holding rune offset p. Text before the first
// marker belongs to the first marked page, or page 1 when there are none.
func (s *source) pageAt(p int) int {
	i := sort.Search(len(s.markers), func(i int) bool { return s.markers[i].start > p })
	if i > 0 {
		return s.markers[i-1].page
	}
	if len(s.markers) > 0 {
		return s.markers[0].page
	}
	return 1
}

// contentSpan returns the first and last offsets in [start, end) that hold
// visible text outside any page marker.
func (s *source) contentSpan(start, end int) (int, int, bool) {
	first := -1
	for p := start; p < end; p++ {
		if s.isContent(p) {
			first = p
			break
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	last := first
	for p := end - 1; p > first; p-- {
		if s.isContent(p) {
			last = p
			break
		}
	}
	return first, last, true
}

func (s *source) isContent(p int) bool {
	if unicode.IsSpace(s.runes[p]) {
		return false
	}
	_, inMarker := s.markerAt(p)
	return !inMarker
}

func (s *source) skipSpace(p, limit int) int {
	for p < limit && unicode.IsSpace(s.runes[p]) {
		p++
	}
	return p
}

func (s *source) isWord(p int) bool {
	return p >= 0 && p < len(s.runes) && vocab.IsWordRune(s.runes[p])
}

// insideWord reports whether offset p falls between two word runes.
func (s *source) insideWord(p int) bool {
	return s.isWord(p-1) && s.isWord(p)
}

// boundary picks the end of the window [start, end) inside a section that
// continues up to limit. The result never splits a word or a page marker.
func (s *source) boundary(start, end, limit int) int {
	cut := s.breakPoint(start, end)

	if s.insideWord(cut) {
		cut = s.wordEdge(start, cut, limit)
	}
	if m, ok := s.markerAt(cut); ok && m.start < cut {
		if m.start > start {
			cut = m.start
		} else {
			cut = m.end
		}
	}
	if cut <= start {
		cut = end
	}
	return cut
}

// breakPoint searches backward from the window end, never past its middle,
// for sentence punctuation and then for a paragraph break.
func (s *source) breakPoint(start, end int) int {
	width := end - start
	lower := start + width/2

	for p := end - 1; p >= lower; p-- {
		if !isSentenceEnd(s.runes[p]) || s.joins(p) {
			continue
		}
		if (p+1-start)*10 >= width*6 {
			return p + 1
		}
		break
	}

	for p := end - 2; p >= lower; p-- {
		if s.runes[p] == '\n' && s.runes[p+1] == '\n' {
			return p
		}
	}
	return end
}

// joins reports whether the punctuation at p sits inside a token such as a
// decimal number or an abbreviation.
func (s *source) joins(p int) bool {
	if p == 0 || p+1 >= len(s.runes) {
		return false
	}
	before, after := s.runes[p-1], s.runes[p+1]
	if unicode.IsLetter(before) && unicode.IsLetter(after) {
		return true
	}
	return unicode.IsDigit(before) && unicode.IsDigit(after)
}

// wordEdge moves a cut that falls inside a word back to the preceding
// whitespace, or forward past the word when the window has none.
func (s *source) wordEdge(start, cut, limit int) int {
	for p := cut - 1; p > start; p-- {
		if unicode.IsSpace(s.runes[p]) {
			return p
		}
	}
	p := cut
	for p < limit && s.isWord(p) {
		p++
	}
	return p
}

// nextStart moves a candidate window start forward to the start of a word,
// stepping out of page markers, without passing limit.
func (s *source) nextStart(p, limit int) int {
	if p < 0 {
		p = 0
	}
	if m, ok := s.markerAt(p); ok && m.start < p {
		p = m.end
	}
	for p < limit && s.insideWord(p) {
		p++
	}
	for p < limit && !s.isWord(p) {
		if m, ok := s.markerAt(p); ok && m.start == p {
			break
		}
		p++
	}
	return min(p, limit)
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}
