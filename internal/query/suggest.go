package query

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// TermDictionary is the term list of an index, with per-term document frequency.
type TermDictionary interface {
	Terms() []string
	DocFrequency(term string) int
}

// Suggestion is a dictionary term close to a query term.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// Suggester proposes spelling corrections from an index's own vocabulary.
type Suggester struct {
	dict           TermDictionary
	maxDistance    int
	maxSuggestions int
	terms          []string
	known          map[string]struct{}
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithMaxDistance sets the largest edit distance a suggestion may have.
func WithMaxDistance(d int) SuggesterOption {
	return func(s *Suggester) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMaxSuggestions caps suggestions returned per term.
func WithMaxSuggestions(n int) SuggesterOption {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSuggester snapshots dict's vocabulary.
func NewSuggester(dict TermDictionary, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		dict:           dict,
		maxDistance:    2,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.terms = dict.Terms()
	s.known = make(map[string]struct{}, len(s.terms))
	for _, t := range s.terms {
		s.known[t] = struct{}{}
	}
	return s
}

// Suggest returns known terms within the edit distance of term, best first.
// Closer and more frequent terms score higher.
func (s *Suggester) Suggest(term string) []Suggestion {
	term = NormalizeTerm(term)
	n := utf8.RuneCountInString(term)
	var out []Suggestion
	for _, t := range s.terms {
		if t == term {
			continue
		}
		diff := utf8.RuneCountInString(t) - n
		if diff < -s.maxDistance || diff > s.maxDistance {
			continue
		}
		d := Distance(term, t)
		if d > s.maxDistance {
			continue
		}
		freq := s.dict.DocFrequency(t)
		out = append(out, Suggestion{
			Term:      t,
			Distance:  d,
			Frequency: freq,
			Score:     float64(freq) / float64(d+1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// Correct replaces each unknown query word with its best suggestion.
// ok is false when no word needed or received a correction.
func (s *Suggester) Correct(raw string) (corrected string, ok bool) {
	words := strings.Fields(strings.ToLower(raw))
	for i, w := range words {
		if _, known := s.known[w]; known || len(w) < 2 {
			continue
		}
		if sug := s.Suggest(w); len(sug) > 0 {
			words[i] = sug[0].Term
			ok = true
		}
	}
	if !ok {
		return raw, false
	}
	return strings.Join(words, " "), true
}
