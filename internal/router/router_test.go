package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		query         string
		docsAvailable bool
		want          Classification
	}{
		{"plain greeting", "Hi", true, Greeting},
		{"greeting with punctuation", "Hello!", true, Greeting},
		{"greeting with trailing words", "hey there friend", true, Greeting},
		{"greeting phrase", "how are you", false, Greeting},
		{"not a greeting prefix", "history of diabetes", true, GeneralQuery},
		{"hidden greeting prefix", "highest safe dosage", true, GeneralQuery},

		{"plain farewell", "bye", true, Farewell},
		{"farewell in sentence", "ok thanks, goodbye", true, Farewell},
		{"farewell phrase", "gotta go now", true, Farewell},

		{"single vague word", "nothing", true, Ambiguous},
		{"vague with punctuation", "idk?", true, Ambiguous},
		{"empty query", "   ", true, Ambiguous},
		{"vague word in sentence", "i know nothing about statins", true, GeneralQuery},

		{"document keyword", "what does the document say about insulin", true, DocumentQuery},
		{"pdf keyword", "summarize the pdf", true, DocumentQuery},
		{"upload keyword", "what's in my uploaded file", true, DocumentQuery},
		{"attachment keyword", "check the attachment for side effects", true, DocumentQuery},

		{"document keyword without docs", "what does the document say about insulin", false, GeneralQuery},
		{"pdf keyword without docs", "summarize the pdf", false, GeneralQuery},

		{"general medical question", "what is hypertension", true, GeneralQuery},
		{"general question without docs", "what is hypertension", false, GeneralQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query, tt.docsAvailable))
		})
	}
}

// Classification must not depend on anything but the inputs.
func TestClassifyDeterministic(t *testing.T) {
	for range 100 {
		assert.Equal(t, Greeting, Classify("good morning", true))
		assert.Equal(t, DocumentQuery, Classify("is aspirin mentioned anywhere?", true))
	}
}

func TestGreetingPrecedesDocumentKeywords(t *testing.T) {
	// A greeting stays a greeting even when a document keyword follows.
	assert.Equal(t, Greeting, Classify("hello pdf", true))
}
