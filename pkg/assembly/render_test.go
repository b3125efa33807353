package assembly_test

import (
	"strings"
	"testing"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

func TestRenderer_SectionOrder(t *testing.T) {
	renderer := assembly.NewRenderer(assembly.NewEstimatedCounter(), nil)

	elements := []*assembly.ContextElement{
		mustElement(t, "the user request", assembly.CategoryUserInput,
			assembly.WithElementTokenCount(4)),
		mustElement(t, "a compliance rule", assembly.CategoryComplianceSources,
			assembly.WithElementTokenCount(4)),
		mustElement(t, "User: earlier question\nAssistant: earlier answer", assembly.CategoryConversationHistory,
			assembly.WithElementTokenCount(10)),
		mustElement(t, "a document summary", assembly.CategoryDocumentSummaries,
			assembly.WithElementTokenCount(4)),
	}

	result := renderer.Build(elements)

	compliance := strings.Index(result, "=== COMPLIANCE GUIDELINES ===")
	conversation := strings.Index(result, "=== CONVERSATION HISTORY ===")
	documents := strings.Index(result, "=== SESSION DOCUMENTS ===")
	user := strings.Index(result, "=== USER REQUEST ===")

	for name, idx := range map[string]int{
		"compliance": compliance, "conversation": conversation,
		"documents": documents, "user": user,
	} {
		if idx < 0 {
			t.Fatalf("%s section header missing from output", name)
		}
	}

	if !(compliance < conversation && conversation < documents && documents < user) {
		t.Errorf("sections out of order: compliance=%d conversation=%d documents=%d user=%d",
			compliance, conversation, documents, user)
	}
}

func TestRenderer_SkipsEmptyCategories(t *testing.T) {
	renderer := assembly.NewRenderer(assembly.NewEstimatedCounter(), nil)

	elements := []*assembly.ContextElement{
		mustElement(t, "only the user request", assembly.CategoryUserInput,
			assembly.WithElementTokenCount(5)),
	}

	result := renderer.Build(elements)

	if strings.Contains(result, "=== COMPLIANCE GUIDELINES ===") {
		t.Error("empty category must not emit a header")
	}
	if !strings.Contains(result, "=== USER REQUEST ===") {
		t.Error("non-empty category header missing")
	}
}

func TestRenderer_GroupSeparators(t *testing.T) {
	renderer := assembly.NewRenderer(assembly.NewEstimatedCounter(), nil)

	elements := []*assembly.ContextElement{
		mustElement(t, "example one", assembly.CategoryVectorSearchResults,
			assembly.WithElementTokenCount(3), assembly.WithPriority(8)),
		mustElement(t, "example two", assembly.CategoryVectorSearchResults,
			assembly.WithElementTokenCount(3), assembly.WithPriority(7)),
	}

	result := renderer.Build(elements)

	if !strings.Contains(result, "---") {
		t.Error("example group should join elements with a visible separator")
	}

	// 组内按有效优先级排序
	if strings.Index(result, "example one") > strings.Index(result, "example two") {
		t.Error("higher priority example should render first")
	}
}

func TestRenderer_ConversationVerbatim(t *testing.T) {
	renderer := assembly.NewRenderer(assembly.NewEstimatedCounter(), nil)

	transcript := "User: first turn\nAssistant: second turn\nUser: third turn"
	elements := []*assembly.ContextElement{
		mustElement(t, transcript, assembly.CategoryConversationHistory,
			assembly.WithElementTokenCount(12)),
	}

	result := renderer.Build(elements)
	if !strings.Contains(result, transcript) {
		t.Error("conversation history must be rendered verbatim")
	}
}

func TestRenderer_Summary(t *testing.T) {
	renderer := assembly.NewRenderer(assembly.NewEstimatedCounter(), nil)

	elements := []*assembly.ContextElement{
		mustElement(t, "a", assembly.CategoryUserInput, assembly.WithElementTokenCount(10)),
		mustElement(t, "b", assembly.CategoryUserInput, assembly.WithElementTokenCount(20)),
		mustElement(t, "c", assembly.CategoryComplianceSources, assembly.WithElementTokenCount(5)),
	}

	summary := renderer.Summary(elements)

	if summary.TotalTokens != 35 {
		t.Errorf("TotalTokens = %d, want 35", summary.TotalTokens)
	}
	if summary.ElementCount != 3 {
		t.Errorf("ElementCount = %d, want 3", summary.ElementCount)
	}
	if summary.TokensByCategory[assembly.CategoryUserInput] != 30 {
		t.Errorf("user input tokens = %d, want 30", summary.TokensByCategory[assembly.CategoryUserInput])
	}
	if summary.TokensByCategory[assembly.CategoryComplianceSources] != 5 {
		t.Errorf("compliance tokens = %d, want 5", summary.TokensByCategory[assembly.CategoryComplianceSources])
	}
}
