package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandTemplate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		tokens   map[string]string
		expected string
	}{
		{
			name:     "KnownToken",
			text:     "Hello {NAME}!",
			tokens:   map[string]string{"NAME": "Anne"},
			expected: "Hello Anne!",
		},
		{
			name:     "UnknownTokenNoDefaultStaysLiteral",
			text:     "Hello {NAME}!",
			tokens:   nil,
			expected: "Hello {NAME}!",
		},
		{
			name:     "DefaultUsedWhenAbsent",
			text:     "Hello {NAME|there}!",
			tokens:   nil,
			expected: "Hello there!",
		},
		{
			name:     "DefaultIgnoredWhenPresent",
			text:     "Hello {NAME|there}!",
			tokens:   map[string]string{"NAME": "Anne"},
			expected: "Hello Anne!",
		},
		{
			name:     "EmptyDefault",
			text:     "Hello {NAME|}!",
			tokens:   nil,
			expected: "Hello !",
		},
		{
			name:     "NestedDefault",
			text:     "Child of {MOTHER|{FATHER|unknown parent}}",
			tokens:   map[string]string{"FATHER": "Jim"},
			expected: "Child of Jim",
		},
		{
			name:     "NestedDefaultFallsThrough",
			text:     "Child of {MOTHER|{FATHER|unknown parent}}",
			tokens:   nil,
			expected: "Child of unknown parent",
		},
		{
			name:     "MultipleRegions",
			text:     "{Q#}. {NAME|Child} {S#}",
			tokens:   map[string]string{"Q#": "2", "S#": "1"},
			expected: "2. Child 1",
		},
		{
			name:     "UnbalancedBraceKeptLiteral",
			text:     "broken {NAME text",
			tokens:   map[string]string{"NAME": "Anne"},
			expected: "broken {NAME text",
		},
		{
			name:     "NoBraces",
			text:     "plain text",
			tokens:   map[string]string{"NAME": "Anne"},
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ExpandTemplate(tt.text, tt.tokens))
		})
	}
}

func TestExpandTemplatePossessiveFixups(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		tokens   map[string]string
		expected string
	}{
		{
			name:     "HerApostrophe",
			text:     "When is {PRONOUN|Your}'s birthday?",
			tokens:   map[string]string{"PRONOUN": "her"},
			expected: "When is her birthday?",
		},
		{
			name:     "HisApostrophe",
			text:     "What is {PRONOUN|Your}'s name?",
			tokens:   map[string]string{"PRONOUN": "his"},
			expected: "What is his name?",
		},
		{
			name:     "YourApostrophe",
			text:     "When is {PRONOUN|Your}'s birthday?",
			tokens:   nil,
			expected: "When is Your birthday?",
		},
		{
			name:     "NameEndingInS",
			text:     "When is {NAME|Your}'s birthday?",
			tokens:   map[string]string{"NAME": "James"},
			expected: "When is James' birthday?",
		},
		{
			name:     "RegularNameKeepsApostrophe",
			text:     "When is {NAME|Your}'s birthday?",
			tokens:   map[string]string{"NAME": "Anne"},
			expected: "When is Anne's birthday?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ExpandTemplate(tt.text, tt.tokens))
		})
	}
}
