// Package router classifies a user query before any model call.
//
// Classification is pure string matching: no I/O, no model, fully
// deterministic. The chat engine uses the result to decide whether to
// retrieve document context, answer from general knowledge, or
// short-circuit with a canned reply.
package router

import "strings"

// Classification is the route assigned to a query.
type Classification string

const (
	Greeting      Classification = "GREETING"
	Farewell      Classification = "FAREWELL"
	DocumentQuery Classification = "DOCUMENT_QUERY"
	GeneralQuery  Classification = "GENERAL_QUERY"
	Ambiguous     Classification = "AMBIGUOUS"
)

// greetings matches whole queries or query prefixes.
var greetings = []string{
	"hi", "hello", "hey", "greetings", "good morning",
	"good afternoon", "good evening", "howdy", "sup",
	"what's up", "how are you", "how's it going",
}

// farewells matches anywhere in the query.
var farewells = []string{
	"bye", "goodbye", "see you", "take care", "farewell",
	"adios", "cya", "see ya", "cheerio", "gotta go",
	"have to go", "talk later", "ttyl",
}

// vague single-word replies that carry no answerable intent.
var unclear = map[string]struct{}{
	"nothing": {}, "nope": {}, "nah": {}, "whatever": {}, "dunno": {}, "idk": {},
}

// documentKeywords signal the user is asking about uploaded material.
var documentKeywords = []string{
	"document", "documents", "file", "pdf", "mention", "mentioned",
	"in the document", "from the document", "uploaded", "upload",
	"your document", "my document", "about the file", "does the document",
	"attachment",
}

// Classify routes a query. Precedence is greeting, farewell, ambiguous,
// document, general. When docsAvailable is false a query can never be
// routed to DocumentQuery, regardless of its wording.
func Classify(query string, docsAvailable bool) Classification {
	q := strings.ToLower(strings.TrimSpace(query))

	switch {
	case isGreeting(q):
		return Greeting
	case isFarewell(q):
		return Farewell
	case isUnclear(q):
		return Ambiguous
	case docsAvailable && isDocumentQuery(q):
		return DocumentQuery
	default:
		return GeneralQuery
	}
}

// isGreeting accepts an exact greeting, or a greeting prefix followed by
// at most two extra words ("hey there!"). The prefix must end on a word
// boundary so "history of diabetes" is not a greeting.
func isGreeting(q string) bool {
	for _, g := range greetings {
		if q == g {
			return true
		}
		if !strings.HasPrefix(q, g) {
			continue
		}
		rest := q[len(g):]
		if rest != "" && !strings.ContainsAny(rest[:1], " \t,.!?") {
			continue
		}
		if len(strings.Fields(rest)) <= 2 {
			return true
		}
	}
	return false
}

func isFarewell(q string) bool {
	for _, f := range farewells {
		if strings.Contains(q, f) {
			return true
		}
	}
	return false
}

func isUnclear(q string) bool {
	if q == "" {
		return true
	}
	if len(strings.Fields(q)) != 1 {
		return false
	}
	_, ok := unclear[strings.Trim(q, ".!?")]
	return ok
}

func isDocumentQuery(q string) bool {
	for _, k := range documentKeywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
