package assembly

// BudgetAllocation 单一类别的 Token 预算台账。
type BudgetAllocation struct {
	// Category 预算所属类别。
	Category ContextCategory

	// AllocatedTokens 分配的 Token 上限。
	AllocatedTokens int

	// UsedTokens 优化阶段记账用量（非权威值）。
	UsedTokens int
}

// RemainingTokens 返回剩余预算。
func (b *BudgetAllocation) RemainingTokens() int {
	return b.AllocatedTokens - b.UsedTokens
}

// BudgetTable 一种请求类型下的分类别基础预算。
type BudgetTable map[ContextCategory]int

// Total 返回预算表的 Token 总量。
func (t BudgetTable) Total() int {
	total := 0
	for _, v := range t {
		total += v
	}
	return total
}

// BudgetMap 分配结果：各类别的预算台账。
type BudgetMap map[ContextCategory]*BudgetAllocation

// Total 返回分配的 Token 总量。
func (m BudgetMap) Total() int {
	total := 0
	for _, alloc := range m {
		total += alloc.AllocatedTokens
	}
	return total
}

// adjustableCategories 用户输入超长时可被匀出预算的类别。
// 每个类别保底 MinCategoryBudget，不会被完全挤占。
var adjustableCategories = []ContextCategory{
	CategoryDocumentSummaries,
	CategoryVectorSearchResults,
	CategoryYouTubeContext,
}

// MinCategoryBudget 可调类别的预算下限。
const MinCategoryBudget = 1000

// Allocator 按请求类型计算分类别 Token 预算。
//
// 各请求类型有固定的基础预算表；用户输入的实际 Token 数
// 超出基础配额时，把超出部分平摊扣减到可调类别上。
// 所有预算表的总量都不超过目标输入上限（全局上限减去输出预留）。
type Allocator struct {
	counter TokenCounter
	tables  map[RequestCategory]BudgetTable
}

// NewAllocator 创建带默认预算表的 Allocator。
// counter 为 nil 时使用 DefaultTokenCounter。
func NewAllocator(counter TokenCounter) *Allocator {
	if counter == nil {
		counter = DefaultTokenCounter()
	}
	return &Allocator{
		counter: counter,
		tables:  defaultBudgetTables(),
	}
}

// defaultBudgetTables 返回各请求类型的基础预算表。
// 创作均衡分配；润色向当前内容倾斜；分析以文档摘要最重；
// 对话以对话历史最重。
func defaultBudgetTables() map[RequestCategory]BudgetTable {
	return map[RequestCategory]BudgetTable{
		CategoryCreation: {
			CategorySystemPrompt:        5000,
			CategoryUserInput:           2000,
			CategoryCurrentContent:      10000,
			CategoryConversationHistory: 40000,
			CategoryComplianceSources:   25000,
			CategoryVectorSearchResults: 20000,
			CategoryDocumentSummaries:   30000,
			CategoryYouTubeContext:      30000,
		},
		CategoryRefinement: {
			CategorySystemPrompt:        5000,
			CategoryUserInput:           2000,
			CategoryCurrentContent:      60000,
			CategoryConversationHistory: 30000,
			CategoryComplianceSources:   25000,
			CategoryVectorSearchResults: 15000,
			CategoryDocumentSummaries:   20000,
			CategoryYouTubeContext:      15000,
		},
		CategoryAnalysis: {
			CategorySystemPrompt:        5000,
			CategoryUserInput:           2000,
			CategoryCurrentContent:      20000,
			CategoryConversationHistory: 20000,
			CategoryComplianceSources:   20000,
			CategoryVectorSearchResults: 15000,
			CategoryDocumentSummaries:   60000,
			CategoryYouTubeContext:      25000,
		},
		CategoryConversation: {
			CategorySystemPrompt:        5000,
			CategoryUserInput:           2000,
			CategoryCurrentContent:      10000,
			CategoryConversationHistory: 80000,
			CategoryComplianceSources:   15000,
			CategoryVectorSearchResults: 15000,
			CategoryDocumentSummaries:   20000,
			CategoryYouTubeContext:      15000,
		},
	}
}

// Allocate 返回给定请求类型下的分类别预算。
// 未知请求类型降级使用创作表。
func (a *Allocator) Allocate(category RequestCategory, userInput string) BudgetMap {
	table, ok := a.tables[category]
	if !ok {
		table = a.tables[CategoryCreation]
	}

	// 拷贝基础表，后续调整不影响原表
	budgets := make(BudgetTable, len(table))
	for cat, tokens := range table {
		budgets[cat] = tokens
	}

	a.adjustForUserInput(budgets, userInput)

	result := make(BudgetMap, len(budgets))
	for cat, tokens := range budgets {
		result[cat] = &BudgetAllocation{
			Category:        cat,
			AllocatedTokens: tokens,
		}
	}
	return result
}

// adjustForUserInput 在用户输入超出基础配额时扩大其预算，
// 并把超出量平摊扣减到可调类别，每类保底 MinCategoryBudget。
func (a *Allocator) adjustForUserInput(budgets BudgetTable, userInput string) {
	actual := a.counter.Count(userInput)
	base := budgets[CategoryUserInput]
	if actual <= base {
		return
	}

	excess := actual - base
	budgets[CategoryUserInput] = actual

	share := excess / len(adjustableCategories)
	for _, cat := range adjustableCategories {
		reduced := budgets[cat] - share
		if reduced < MinCategoryBudget {
			reduced = MinCategoryBudget
		}
		budgets[cat] = reduced
	}
}
