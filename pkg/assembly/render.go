package assembly

import (
	"sort"
	"strings"

	"github.com/easyops/advisorctx-go/pkg/otel"
)

// renderOrder 渲染的固定类别顺序。
var renderOrder = []ContextCategory{
	CategorySystemPrompt,
	CategoryComplianceSources,
	CategoryVectorSearchResults,
	CategoryConversationHistory,
	CategoryCurrentContent,
	CategoryDocumentSummaries,
	CategoryYouTubeContext,
	CategoryUserInput,
}

// sectionHeaders 各类别的章节头。
var sectionHeaders = map[ContextCategory]string{
	CategorySystemPrompt:        "=== SYSTEM INSTRUCTIONS ===",
	CategoryComplianceSources:   "=== COMPLIANCE GUIDELINES ===",
	CategoryVectorSearchResults: "=== RELEVANT EXAMPLES ===",
	CategoryConversationHistory: "=== CONVERSATION HISTORY ===",
	CategoryCurrentContent:      "=== CURRENT CONTENT ===",
	CategoryDocumentSummaries:   "=== SESSION DOCUMENTS ===",
	CategoryYouTubeContext:      "=== VIDEO CONTEXT ===",
	CategoryUserInput:           "=== USER REQUEST ===",
}

// groupSeparator 合规与示例类别内多元素间的可见分隔符。
const groupSeparator = "\n---\n"

// separatedCategories 使用可见分隔符的类别。
var separatedCategories = map[ContextCategory]bool{
	CategoryComplianceSources:   true,
	CategoryVectorSearchResults: true,
}

// RenderSummary 渲染结果的统计信息。
type RenderSummary struct {
	// TokensByCategory 各类别的 Token 总数。
	TokensByCategory map[ContextCategory]int

	// TotalTokens 全部元素的 Token 总数。
	TotalTokens int

	// ElementCount 元素总数。
	ElementCount int
}

// Renderer 把挑选后的上下文元素渲染为最终的上下文字符串。
//
// 按固定类别顺序输出，每个类别带章节头；合规与示例类别内
// 用分隔符连接，对话历史逐字保留；空类别跳过。
type Renderer struct {
	counter TokenCounter
	logger  otel.Logger
}

// NewRenderer 创建渲染器。counter 为 nil 时使用
// DefaultTokenCounter，logger 为 nil 时使用 Noop。
func NewRenderer(counter TokenCounter, logger otel.Logger) *Renderer {
	if counter == nil {
		counter = DefaultTokenCounter()
	}
	if logger == nil {
		logger = otel.NewNoopLogger()
	}
	return &Renderer{counter: counter, logger: logger}
}

// Build 渲染元素为单个上下文字符串。
// 内部出错时降级为类别前缀的简单拼接，不会失败。
func (r *Renderer) Build(elements []*ContextElement) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("context render failed, using minimal fallback",
				"panic", rec)
			result = r.minimalRender(elements)
		}
	}()

	grouped := groupByCategory(elements)

	var sections []string
	for _, category := range renderOrder {
		group := grouped[category]
		if len(group) == 0 {
			continue
		}

		body := r.renderGroup(category, group)
		if strings.TrimSpace(body) == "" {
			continue
		}

		sections = append(sections, sectionHeaders[category]+"\n"+body)
	}

	return strings.Join(sections, "\n\n")
}

// renderGroup 渲染单个类别内的全部元素。
func (r *Renderer) renderGroup(category ContextCategory, group []*ContextElement) string {
	parts := make([]string, 0, len(group))
	for _, elem := range group {
		if strings.TrimSpace(elem.Content) == "" {
			continue
		}
		parts = append(parts, elem.Content)
	}
	if len(parts) == 0 {
		return ""
	}

	// 对话历史逐字保留轮次结构
	if category == CategoryConversationHistory {
		return strings.Join(parts, "\n")
	}
	if separatedCategories[category] {
		return strings.Join(parts, groupSeparator)
	}
	return strings.Join(parts, "\n\n")
}

// minimalRender 降级渲染：元素内容加类别前缀直接拼接。
func (r *Renderer) minimalRender(elements []*ContextElement) string {
	var sb strings.Builder
	for _, elem := range elements {
		if elem == nil || strings.TrimSpace(elem.Content) == "" {
			continue
		}
		sb.WriteString(string(elem.Category))
		sb.WriteString(":\n")
		sb.WriteString(elem.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}

// Summary 返回按类别统计的 Token 总数与元素数。
func (r *Renderer) Summary(elements []*ContextElement) *RenderSummary {
	summary := &RenderSummary{
		TokensByCategory: make(map[ContextCategory]int),
	}
	for _, elem := range elements {
		summary.TokensByCategory[elem.Category] += elem.TokenCount
		summary.TotalTokens += elem.TokenCount
		summary.ElementCount++
	}
	return summary
}

// groupByCategory 按类别分组并在组内按有效优先级降序排序。
func groupByCategory(elements []*ContextElement) map[ContextCategory][]*ContextElement {
	grouped := make(map[ContextCategory][]*ContextElement)
	for _, elem := range elements {
		if elem == nil {
			continue
		}
		grouped[elem.Category] = append(grouped[elem.Category], elem)
	}
	for _, group := range grouped {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].EffectivePriority() > group[j].EffectivePriority()
		})
	}
	return grouped
}
