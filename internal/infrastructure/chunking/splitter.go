package chunking

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// DefaultSeparators go from coarse to fine: paragraph, line, sentence
// punctuation, word and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Splitter is a recursive character splitter. Sizes are counted in runes.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

type span struct {
	start int
	end   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: DefaultSeparators,
	}
}

func (s *Splitter) Split(text string) []string {
	spans := s.splitSpans(text)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		chunk := strings.TrimSpace(text[sp.start:sp.end])
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// splitSpans returns byte ranges of text. Consecutive ranges are contiguous
// or overlapping, and every range holds at most ChunkSize runes.
func (s *Splitter) splitSpans(text string) []span {
	if text == "" {
		return nil
	}
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	atoms := s.atomize(text, 0, len(text), seps)
	return s.merge(text, atoms)
}

// atomize breaks text[start:end] into pieces no longer than ChunkSize,
// descending to finer separators only for pieces that are still too long.
func (s *Splitter) atomize(text string, start, end int, seps []string) []span {
	if utf8.RuneCountInString(text[start:end]) <= s.ChunkSize {
		return []span{{start: start, end: end}}
	}

	sepIdx := len(seps) - 1
	for i, sep := range seps {
		if sep == "" || strings.Contains(text[start:end], sep) {
			sepIdx = i
			break
		}
	}
	sep := seps[sepIdx]
	rest := seps[sepIdx+1:]

	if sep == "" {
		out := make([]span, 0, end-start)
		for i := start; i < end; {
			_, size := utf8.DecodeRuneInString(text[i:end])
			out = append(out, span{start: i, end: i + size})
			i += size
		}
		return out
	}

	var out []span
	pos := start
	for pos < end {
		idx := strings.Index(text[pos:end], sep)
		pieceEnd := end
		if idx >= 0 {
			pieceEnd = pos + idx + len(sep)
		}
		if utf8.RuneCountInString(text[pos:pieceEnd]) <= s.ChunkSize || len(rest) == 0 {
			out = append(out, span{start: pos, end: pieceEnd})
		} else {
			out = append(out, s.atomize(text, pos, pieceEnd, rest)...)
		}
		pos = pieceEnd
	}
	return out
}

// merge packs atoms greedily into chunks and carries at most Overlap runes
// of trailing atoms into the next chunk.
func (s *Splitter) merge(text string, atoms []span) []span {
	var (
		out     []span
		current []span
		lengths []int
		curLen  int
	)
	for _, atom := range atoms {
		atomLen := utf8.RuneCountInString(text[atom.start:atom.end])
		if curLen+atomLen > s.ChunkSize && len(current) > 0 {
			out = append(out, span{start: current[0].start, end: current[len(current)-1].end})
			for len(current) > 0 && (curLen > s.Overlap || curLen+atomLen > s.ChunkSize) {
				curLen -= lengths[0]
				current = current[1:]
				lengths = lengths[1:]
			}
		}
		current = append(current, atom)
		lengths = append(lengths, atomLen)
		curLen += atomLen
	}
	if len(current) > 0 {
		out = append(out, span{start: current[0].start, end: current[len(current)-1].end})
	}
	return out
}
