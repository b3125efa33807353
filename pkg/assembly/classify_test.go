package assembly_test

import (
	"testing"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := assembly.NewClassifier()

	tests := []struct {
		name           string
		userInput      string
		currentContent string
		expected       assembly.RequestCategory
	}{
		{
			name:      "creation keyword",
			userInput: "Write a LinkedIn post about retirement planning",
			expected:  assembly.CategoryCreation,
		},
		{
			name:      "refinement keyword",
			userInput: "Please improve the tone of this paragraph",
			expected:  assembly.CategoryRefinement,
		},
		{
			name:      "analysis keyword",
			userInput: "Review this newsletter draft for compliance issues",
			expected:  assembly.CategoryAnalysis,
		},
		{
			name:      "plain question falls back to conversation",
			userInput: "What are catch-up contributions?",
			expected:  assembly.CategoryConversation,
		},
		{
			name:      "empty input is conversation",
			userInput: "",
			expected:  assembly.CategoryConversation,
		},
		{
			name:           "current content forces refinement over creation keyword",
			userInput:      "Create a new version of this post",
			currentContent: "Existing draft text",
			expected:       assembly.CategoryRefinement,
		},
		{
			name:      "refinement keyword wins over creation keyword",
			userInput: "Edit and create a new post",
			expected:  assembly.CategoryRefinement,
		},
		{
			name:      "case insensitive matching",
			userInput: "ANALYZE my portfolio allocation",
			expected:  assembly.CategoryAnalysis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifier.Classify(tt.userInput, tt.currentContent)
			if got != tt.expected {
				t.Errorf("Classify(%q, %q) = %v, want %v",
					tt.userInput, tt.currentContent, got, tt.expected)
			}
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	classifier := assembly.NewClassifier()
	input := "Write a blog post about estate planning"

	first := classifier.Classify(input, "")
	for i := 0; i < 10; i++ {
		if got := classifier.Classify(input, ""); got != first {
			t.Fatalf("classification not deterministic: %v != %v", got, first)
		}
	}
}
