package assembly_test

import (
	"errors"
	"testing"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

func TestNewContextElement(t *testing.T) {
	elem, err := assembly.NewContextElement("some advisory content", assembly.CategoryUserInput,
		assembly.WithPriority(10),
		assembly.WithRelevance(1.0),
	)
	if err != nil {
		t.Fatalf("NewContextElement returned error: %v", err)
	}

	if elem.Content != "some advisory content" {
		t.Errorf("Content = %q, want %q", elem.Content, "some advisory content")
	}
	if elem.Category != assembly.CategoryUserInput {
		t.Errorf("Category = %v, want %v", elem.Category, assembly.CategoryUserInput)
	}
	if elem.TokenCount == 0 {
		t.Error("TokenCount should be auto-calculated")
	}
	if elem.CompressionLevel != 0 {
		t.Errorf("CompressionLevel = %v, want 0", elem.CompressionLevel)
	}
}

func TestNewContextElement_EmptyContent(t *testing.T) {
	_, err := assembly.NewContextElement("", assembly.CategoryUserInput)
	if !errors.Is(err, assembly.ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestNewContextElement_ClampScores(t *testing.T) {
	elem, err := assembly.NewContextElement("content", assembly.CategoryUserInput,
		assembly.WithPriority(15),
		assembly.WithRelevance(-0.5),
	)
	if err != nil {
		t.Fatalf("NewContextElement returned error: %v", err)
	}

	if elem.PriorityScore != 10 {
		t.Errorf("PriorityScore = %v, want clamped to 10", elem.PriorityScore)
	}
	if elem.RelevanceScore != 0 {
		t.Errorf("RelevanceScore = %v, want clamped to 0", elem.RelevanceScore)
	}
}

func TestEffectivePriority(t *testing.T) {
	tests := []struct {
		name      string
		priority  float64
		relevance float64
		expected  float64
	}{
		{"zero relevance keeps base", 5.0, 0, 5.0},
		{"full relevance doubles", 5.0, 1.0, 10.0},
		{"partial relevance", 8.0, 0.5, 12.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elem, err := assembly.NewContextElement("x", assembly.CategoryUserInput,
				assembly.WithPriority(tt.priority),
				assembly.WithRelevance(tt.relevance),
			)
			if err != nil {
				t.Fatalf("NewContextElement returned error: %v", err)
			}
			if got := elem.EffectivePriority(); got != tt.expected {
				t.Errorf("EffectivePriority() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsHighPriority(t *testing.T) {
	low, _ := assembly.NewContextElement("x", assembly.CategoryDocumentSummaries,
		assembly.WithPriority(4), assembly.WithRelevance(0.5))
	if low.IsHighPriority() {
		t.Error("effective priority 6.0 should not be high priority")
	}

	high, _ := assembly.NewContextElement("x", assembly.CategoryComplianceSources,
		assembly.WithPriority(9), assembly.WithRelevance(0))
	if !high.IsHighPriority() {
		t.Error("effective priority 9.0 should be high priority")
	}
}

func TestIsCompressible(t *testing.T) {
	small, _ := assembly.NewContextElement("short", assembly.CategoryDocumentSummaries,
		assembly.WithElementTokenCount(100))
	if small.IsCompressible() {
		t.Error("element under the minimum token threshold should not be compressible")
	}

	large, _ := assembly.NewContextElement("long content", assembly.CategoryDocumentSummaries,
		assembly.WithElementTokenCount(1000))
	if !large.IsCompressible() {
		t.Error("large uncompressed element should be compressible")
	}

	large.CompressionLevel = 0.85
	if large.IsCompressible() {
		t.Error("heavily compressed element should not be compressible again")
	}
}

func TestClone(t *testing.T) {
	elem, _ := assembly.NewContextElement("original", assembly.CategoryUserInput,
		assembly.WithSourceMetadata(map[string]interface{}{"key": "value"}),
	)

	clone := elem.Clone()
	clone.Content = "changed"
	clone.SetMetadata("key", "other")

	if elem.Content != "original" {
		t.Error("mutating the clone changed the original content")
	}
	if v, _ := elem.GetMetadata("key"); v != "value" {
		t.Error("mutating the clone changed the original metadata")
	}
}
