package assembly_test

import (
	"testing"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

func TestAllocator_Allocate(t *testing.T) {
	allocator := assembly.NewAllocator(assembly.NewEstimatedCounter())

	tests := []struct {
		name        string
		requestType assembly.RequestCategory
		heaviest    assembly.ContextCategory
	}{
		{"creation favors conversation history", assembly.CategoryCreation, assembly.CategoryConversationHistory},
		{"refinement favors current content", assembly.CategoryRefinement, assembly.CategoryCurrentContent},
		{"analysis favors documents", assembly.CategoryAnalysis, assembly.CategoryDocumentSummaries},
		{"conversation favors history", assembly.CategoryConversation, assembly.CategoryConversationHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			budgets := allocator.Allocate(tt.requestType, "short input")

			if len(budgets) != len(assembly.AllCategories) {
				t.Errorf("allocated %d categories, want %d", len(budgets), len(assembly.AllCategories))
			}

			heaviest := budgets[tt.heaviest].AllocatedTokens
			for category, alloc := range budgets {
				if category == tt.heaviest {
					continue
				}
				if alloc.AllocatedTokens > heaviest {
					t.Errorf("%s got %d tokens, more than the expected heaviest %s (%d)",
						category, alloc.AllocatedTokens, tt.heaviest, heaviest)
				}
			}
		})
	}
}

func TestAllocator_TotalWithinTarget(t *testing.T) {
	allocator := assembly.NewAllocator(assembly.NewEstimatedCounter())
	target := assembly.DefaultTokenCeiling - assembly.DefaultOutputReserve

	for _, requestType := range []assembly.RequestCategory{
		assembly.CategoryCreation,
		assembly.CategoryRefinement,
		assembly.CategoryAnalysis,
		assembly.CategoryConversation,
	} {
		budgets := allocator.Allocate(requestType, "short input")
		if total := budgets.Total(); total > target {
			t.Errorf("%s: total budget %d exceeds target input %d", requestType, total, target)
		}
	}
}

func TestAllocator_UnknownTypeFallsBackToCreation(t *testing.T) {
	allocator := assembly.NewAllocator(assembly.NewEstimatedCounter())

	unknown := allocator.Allocate(assembly.RequestCategory("mystery_mode"), "")
	creation := allocator.Allocate(assembly.CategoryCreation, "")

	for category, alloc := range creation {
		if unknown[category].AllocatedTokens != alloc.AllocatedTokens {
			t.Errorf("%s: unknown type allocated %d, creation table has %d",
				category, unknown[category].AllocatedTokens, alloc.AllocatedTokens)
		}
	}
}

func TestAllocator_OversizedUserInput(t *testing.T) {
	counter := assembly.NewEstimatedCounter()
	allocator := assembly.NewAllocator(counter)

	// ~5000 tokens of input, well over the 2000 base user budget
	longInput := make([]byte, 20000)
	for i := range longInput {
		longInput[i] = 'a'
	}

	budgets := allocator.Allocate(assembly.CategoryCreation, string(longInput))

	actual := counter.Count(string(longInput))
	if got := budgets[assembly.CategoryUserInput].AllocatedTokens; got != actual {
		t.Errorf("user input budget = %d, want raised to actual %d", got, actual)
	}

	// 可调类别被匀出预算，但不低于保底值
	base := allocator.Allocate(assembly.CategoryCreation, "")
	for _, category := range []assembly.ContextCategory{
		assembly.CategoryDocumentSummaries,
		assembly.CategoryVectorSearchResults,
		assembly.CategoryYouTubeContext,
	} {
		got := budgets[category].AllocatedTokens
		if got >= base[category].AllocatedTokens {
			t.Errorf("%s budget %d not reduced from base %d", category, got, base[category].AllocatedTokens)
		}
		if got < assembly.MinCategoryBudget {
			t.Errorf("%s budget %d below floor %d", category, got, assembly.MinCategoryBudget)
		}
	}

	// 非可调类别保持不变
	if got := budgets[assembly.CategoryComplianceSources].AllocatedTokens; got != base[assembly.CategoryComplianceSources].AllocatedTokens {
		t.Errorf("compliance budget changed to %d, want unchanged", got)
	}
}

func TestBudgetAllocation_RemainingTokens(t *testing.T) {
	alloc := &assembly.BudgetAllocation{
		Category:        assembly.CategoryUserInput,
		AllocatedTokens: 1000,
		UsedTokens:      400,
	}
	if got := alloc.RemainingTokens(); got != 600 {
		t.Errorf("RemainingTokens() = %d, want 600", got)
	}
}
