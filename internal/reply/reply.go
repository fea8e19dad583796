// Package reply owns the free-text wire contract with the model: the
// instruction suffix that asks for demarcated code and follow-up questions,
// and the tolerant parser that turns a raw reply back into its sections.
package reply

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// CodeSentinel introduces an executable code block in the model reply.
	CodeSentinel = "CÓDIGO:"

	// SuggestionsSentinel introduces the comma-separated follow-up questions.
	SuggestionsSentinel = "SUGESTÕES:"

	// MaxSuggestions is the cap on parsed follow-up questions.
	MaxSuggestions = 3
)

// Instructions is appended to the final text part of every outgoing turn.
const Instructions = "\n\nIMPORTANT: At the end, if you wrote Go code, write '" + CodeSentinel +
	"' followed only by the code. Then write '" + SuggestionsSentinel +
	"' and 3 short follow-up questions separated by commas." +
	" Code runs as a cell in a persistent Go interpreter where fmt, strings, os, math, sort, strconv and time are already imported."

// Alternate spellings accepted on input. Models sometimes drop the accents.
var (
	codeMarkers        = []string{CodeSentinel, "CODIGO:"}
	suggestionsMarkers = []string{SuggestionsSentinel, "SUGESTOES:"}
	allMarkers         = append(append([]string{}, codeMarkers...), suggestionsMarkers...)
)

// Reply is the structured form of a raw model reply.
type Reply struct {
	Answer      string
	Code        string
	Suggestions []string
}

// HasCode reports whether code was extracted.
func (r Reply) HasCode() bool {
	return r.Code != ""
}

// Parse splits a raw reply on the sentinels. It never fails:
//   - without a suggestions sentinel, suggestions are empty;
//   - without a code sentinel before the suggestions, code is empty;
//   - the answer never contains either sentinel.
//
// The suggestions sentinel is taken at its last occurrence and the code
// sentinel at its first occurrence before that, so a sentinel quoted
// inside the answer only hides the text after it.
func Parse(raw string) Reply {
	text := norm.NFC.String(raw)

	body, tail, hasSuggestions := cutLast(text, suggestionsMarkers)
	if !hasSuggestions {
		body = text
	}

	answer, code, hasCode := cutFirst(body, codeMarkers)
	if !hasCode {
		answer = body
	}

	var r Reply
	r.Answer = strings.TrimSpace(stripMarkers(answer))
	if hasCode {
		r.Code = stripFences(stripMarkers(code))
	}
	if hasSuggestions {
		r.Suggestions = splitSuggestions(stripMarkers(tail))
	}
	return r
}

func cutFirst(s string, markers []string) (before, after string, found bool) {
	best := -1
	var marker string
	for _, m := range markers {
		if i := strings.Index(s, m); i >= 0 && (best < 0 || i < best) {
			best, marker = i, m
		}
	}
	if best < 0 {
		return s, "", false
	}
	return s[:best], s[best+len(marker):], true
}

func cutLast(s string, markers []string) (before, after string, found bool) {
	best := -1
	var marker string
	for _, m := range markers {
		if i := strings.LastIndex(s, m); i > best {
			best, marker = i, m
		}
	}
	if best < 0 {
		return s, "", false
	}
	return s[:best], s[best+len(marker):], true
}

// stripMarkers removes stray sentinels so none can reach persisted history.
// Removing one can join its neighbours into another, so it repeats until
// nothing changes.
func stripMarkers(s string) string {
	for {
		prev := s
		for _, m := range allMarkers {
			s = strings.ReplaceAll(s, m, "")
		}
		if s == prev {
			return s
		}
	}
}

var fenceLine = regexp.MustCompile("^\\s*(```|~~~)[\\w+#.-]*\\s*$")

// stripFences removes markdown code-fence lines around the code.
func stripFences(code string) string {
	lines := strings.Split(strings.TrimSpace(code), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if fenceLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

func splitSuggestions(tail string) []string {
	tail = strings.TrimSpace(tail)
	if tail == "" {
		return nil
	}

	sep := ","
	if !strings.Contains(tail, ",") {
		sep = "\n"
	}

	var out []string
	for _, s := range strings.Split(tail, sep) {
		s = listMarker.ReplaceAllString(s, "")
		s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'*`))
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}
