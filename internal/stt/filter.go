package stt

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultHallucinations contains phrases whisper-family models emit for
// silence or background noise. A transcript that collapses to one of these
// carries no user speech.
var DefaultHallucinations = []string{
	"thank you",
	"thanks for watching",
	"thank you for watching",
	"thank you so much for watching",
	"please subscribe",
	"subtitles by the amara.org community",
	"bye",
	"you",
	"the end",
}

// noiseTagPattern matches bracketed annotations like [BLANK_AUDIO],
// (music), *silence* that whisper.cpp inserts for non-speech audio.
var noiseTagPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

var spacePattern = regexp.MustCompile(`\s+`)

// TranscriptFilter cleans engine transcripts before they become prompts.
type TranscriptFilter struct {
	mu             sync.RWMutex
	hallucinations map[string]struct{}
}

// NewTranscriptFilter creates a filter with the given hallucination phrases.
// If phrases is nil, DefaultHallucinations is used.
func NewTranscriptFilter(phrases []string) *TranscriptFilter {
	if phrases == nil {
		phrases = DefaultHallucinations
	}

	f := &TranscriptFilter{
		hallucinations: make(map[string]struct{}, len(phrases)),
	}
	for _, p := range phrases {
		f.hallucinations[normalizePhrase(p)] = struct{}{}
	}
	return f
}

// AddPhrase adds a hallucination phrase to the filter.
func (f *TranscriptFilter) AddPhrase(phrase string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hallucinations[normalizePhrase(phrase)] = struct{}{}
}

// Phrases returns a copy of the current hallucination list.
func (f *TranscriptFilter) Phrases() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	phrases := make([]string, 0, len(f.hallucinations))
	for p := range f.hallucinations {
		phrases = append(phrases, p)
	}
	return phrases
}

// Clean strips noise tags, normalizes whitespace, and discards transcripts
// that are hallucination phrases or bare punctuation. Returns the cleaned
// text and whether meaningful content remains.
func (f *TranscriptFilter) Clean(text string) (cleaned string, hasContent bool) {
	if text == "" {
		return "", false
	}

	cleaned = noiseTagPattern.ReplaceAllString(text, "")
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", false
	}

	f.mu.RLock()
	_, isHallucination := f.hallucinations[normalizePhrase(cleaned)]
	f.mu.RUnlock()
	if isHallucination {
		return "", false
	}

	if strings.Trim(cleaned, ".,!?;:- ") == "" {
		return "", false
	}

	return cleaned, true
}

// FilterResponse cleans a TranscribeResponse in place.
// Returns false if nothing meaningful survived.
func (f *TranscriptFilter) FilterResponse(resp *TranscribeResponse) bool {
	if resp == nil {
		return false
	}

	cleaned, hasContent := f.Clean(resp.Text)
	resp.Text = cleaned
	return hasContent
}

// normalizePhrase lowercases and strips punctuation for phrase matching.
func normalizePhrase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".,!?;:- ")
	return spacePattern.ReplaceAllString(s, " ")
}
