package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var firstIntPattern = regexp.MustCompile(`-?\d+`)

// StripFences removes a surrounding markdown code fence, if any.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced top-level {...} block in raw
// that is valid JSON. Commentary before or after the block is ignored.
func ExtractJSONObject(raw string) (json.RawMessage, error) {
	return extractBlock(raw, '{', '}')
}

// ExtractJSONArray returns the first balanced top-level [...] block in raw
// that is valid JSON.
func ExtractJSONArray(raw string) (json.RawMessage, error) {
	return extractBlock(raw, '[', ']')
}

func extractBlock(raw string, open, closing byte) (json.RawMessage, error) {
	s := StripFences(raw)
	for start := strings.IndexByte(s, open); start >= 0; {
		end := matchClose(s, start, open, closing)
		if end < 0 {
			break
		}
		candidate := s[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		next := strings.IndexByte(s[start+1:], open)
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, fmt.Errorf("%w: no %c...%c block found", ErrParse, open, closing)
}

// matchClose returns the index of the bracket closing s[start], skipping
// brackets that appear inside JSON strings.
func matchClose(s string, start int, open, closing byte) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// FirstInt returns the first integer substring of raw.
func FirstInt(raw string) (int, error) {
	match := firstIntPattern.FindString(raw)
	if match == "" {
		return 0, fmt.Errorf("%w: no integer in %q", ErrParse, truncate(raw, 40))
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return n, nil
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
