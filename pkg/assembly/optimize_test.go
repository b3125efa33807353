package assembly_test

import (
	"strings"
	"testing"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

func mustElement(t *testing.T, content string, category assembly.ContextCategory, opts ...assembly.ElementOption) *assembly.ContextElement {
	t.Helper()
	elem, err := assembly.NewContextElement(content, category, opts...)
	if err != nil {
		t.Fatalf("NewContextElement: %v", err)
	}
	return elem
}

func singleBudget(category assembly.ContextCategory, tokens int) assembly.BudgetMap {
	return assembly.BudgetMap{
		category: &assembly.BudgetAllocation{
			Category:        category,
			AllocatedTokens: tokens,
		},
	}
}

func TestOptimizer_KeepsElementsWithinBudget(t *testing.T) {
	counter := assembly.NewEstimatedCounter()
	optimizer := assembly.NewOptimizer(counter, nil)

	elements := []*assembly.ContextElement{
		mustElement(t, "first", assembly.CategoryUserInput,
			assembly.WithElementTokenCount(100), assembly.WithPriority(10)),
		mustElement(t, "second", assembly.CategoryUserInput,
			assembly.WithElementTokenCount(200), assembly.WithPriority(5)),
	}

	selected, stats := optimizer.Optimize(elements, singleBudget(assembly.CategoryUserInput, 1000))

	if len(selected) != 2 {
		t.Fatalf("selected %d elements, want 2", len(selected))
	}
	if stats.Applied() {
		t.Error("no optimization expected when everything fits")
	}
}

func TestOptimizer_PriorityOrderWins(t *testing.T) {
	counter := assembly.NewEstimatedCounter()
	optimizer := assembly.NewOptimizer(counter, nil)

	// 预算只够一个元素，高有效优先级者胜出
	low := mustElement(t, "low priority content", assembly.CategoryDocumentSummaries,
		assembly.WithElementTokenCount(80), assembly.WithPriority(3))
	high := mustElement(t, "high priority content", assembly.CategoryDocumentSummaries,
		assembly.WithElementTokenCount(80), assembly.WithPriority(9))

	selected, stats := optimizer.Optimize(
		[]*assembly.ContextElement{low, high},
		singleBudget(assembly.CategoryDocumentSummaries, 100),
	)

	if len(selected) != 1 {
		t.Fatalf("selected %d elements, want 1", len(selected))
	}
	if selected[0] != high {
		t.Error("higher effective priority element should be selected")
	}
	if stats.DroppedElements != 1 {
		t.Errorf("DroppedElements = %d, want 1", stats.DroppedElements)
	}
}

func TestOptimizer_CompressesFirstOverflow(t *testing.T) {
	counter := assembly.NewEstimatedCounter()
	optimizer := assembly.NewOptimizer(counter, nil)

	// 超预算但可压缩的大元素
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("A paragraph about portfolio diversification and retirement income strategies for advisory clients.\n\n")
	}
	content := sb.String()
	big := mustElement(t, content, assembly.CategoryDocumentSummaries,
		assembly.WithPriority(8), assembly.WithElementTokenCount(counter.Count(content)))

	budget := 600
	selected, stats := optimizer.Optimize(
		[]*assembly.ContextElement{big},
		singleBudget(assembly.CategoryDocumentSummaries, budget),
	)

	if len(selected) != 1 {
		t.Fatalf("selected %d elements, want compressed element kept", len(selected))
	}
	if stats.CompressedElements != 1 {
		t.Errorf("CompressedElements = %d, want 1", stats.CompressedElements)
	}
	if selected[0].TokenCount > int(float64(budget)*1.1) {
		t.Errorf("compressed element has %d tokens, over budget %d", selected[0].TokenCount, budget)
	}
	if selected[0].CompressionLevel <= 0 {
		t.Error("CompressionLevel should record removed share")
	}
}

func TestOptimizer_DropsUnbudgetedCategory(t *testing.T) {
	counter := assembly.NewEstimatedCounter()
	optimizer := assembly.NewOptimizer(counter, nil)

	elem := mustElement(t, "orphan content", assembly.CategoryYouTubeContext,
		assembly.WithElementTokenCount(10))

	selected, stats := optimizer.Optimize(
		[]*assembly.ContextElement{elem},
		singleBudget(assembly.CategoryUserInput, 1000),
	)

	if len(selected) != 0 {
		t.Errorf("selected %d elements, want 0 for unbudgeted category", len(selected))
	}
	if stats.DroppedElements != 1 {
		t.Errorf("DroppedElements = %d, want 1", stats.DroppedElements)
	}
}

func TestOptimizer_EnforceCeiling(t *testing.T) {
	counter := assembly.NewEstimatedCounter()
	optimizer := assembly.NewOptimizer(counter, nil)

	within := "short context"
	stats := &assembly.OptimizationStats{}
	if got := optimizer.EnforceCeiling(within, 1000, stats); got != within {
		t.Error("context within ceiling must pass through unchanged")
	}
	if stats.EmergencyApplied {
		t.Error("no emergency expected within ceiling")
	}

	over := strings.Repeat("overflowing content without paragraph breaks ", 200)
	got := optimizer.EnforceCeiling(over, 100, stats)
	if counter.Count(got) > 100+counter.Count(assembly.TruncationNotice)+2 {
		t.Errorf("ceiling-enforced context still has %d tokens", counter.Count(got))
	}
	if !stats.EmergencyApplied {
		t.Error("emergency compression should be recorded")
	}
}
