package assembly

import (
	"sort"

	"github.com/easyops/advisorctx-go/pkg/otel"
)

// OptimizationStats 优化阶段的统计信息。
type OptimizationStats struct {
	// CompressedElements 被压缩的元素数。
	CompressedElements int

	// DroppedElements 被丢弃的元素数。
	DroppedElements int

	// EmergencyApplied 是否触发了整体紧急压缩。
	EmergencyApplied bool

	// Truncated 是否触发了最终硬截断。
	Truncated bool
}

// Applied 返回优化阶段是否改动过任何元素。
func (s *OptimizationStats) Applied() bool {
	return s.CompressedElements > 0 || s.DroppedElements > 0 ||
		s.EmergencyApplied || s.Truncated
}

// TruncationNotice 最终硬截断时追加的说明。
const TruncationNotice = "\n[Context truncated to fit token limit]"

// Optimizer 在预算约束下挑选并压缩上下文元素。
//
// 每个类别内按有效优先级降序贪心填充：放不下的首个元素
// 尝试压缩到剩余预算而不是直接丢弃；压缩失败的元素丢弃并
// 记录警告。
type Optimizer struct {
	counter TokenCounter
	logger  otel.Logger
}

// NewOptimizer 创建优化器。counter 为 nil 时使用
// DefaultTokenCounter，logger 为 nil 时使用 Noop。
func NewOptimizer(counter TokenCounter, logger otel.Logger) *Optimizer {
	if counter == nil {
		counter = DefaultTokenCounter()
	}
	if logger == nil {
		logger = otel.NewNoopLogger()
	}
	return &Optimizer{counter: counter, logger: logger}
}

// Optimize 对元素做预算内挑选，返回保留的元素和统计信息。
// budgets 中各类别的 UsedTokens 会被更新。
func (o *Optimizer) Optimize(elements []*ContextElement, budgets BudgetMap) ([]*ContextElement, *OptimizationStats) {
	stats := &OptimizationStats{}

	// 按类别分组，保持到达顺序
	grouped := make(map[ContextCategory][]*ContextElement)
	for _, elem := range elements {
		grouped[elem.Category] = append(grouped[elem.Category], elem)
	}

	var selected []*ContextElement

	for _, category := range AllCategories {
		group := grouped[category]
		if len(group) == 0 {
			continue
		}

		alloc, ok := budgets[category]
		if !ok {
			stats.DroppedElements += len(group)
			o.logger.Warn("no budget for category, elements dropped",
				"category", string(category), "count", len(group))
			continue
		}

		kept := o.fillCategory(group, alloc, stats)
		selected = append(selected, kept...)
	}

	return selected, stats
}

// fillCategory 在单个类别的预算内贪心填充。
func (o *Optimizer) fillCategory(group []*ContextElement, alloc *BudgetAllocation, stats *OptimizationStats) []*ContextElement {
	// 有效优先级降序，同分保持到达顺序
	sorted := make([]*ContextElement, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectivePriority() > sorted[j].EffectivePriority()
	})

	var kept []*ContextElement
	compressedOnce := false

	for _, elem := range sorted {
		remaining := alloc.RemainingTokens()
		if elem.TokenCount <= remaining {
			kept = append(kept, elem)
			alloc.UsedTokens += elem.TokenCount
			continue
		}

		// 首个放不下的元素尝试压缩到剩余预算
		if !compressedOnce && elem.IsCompressible() && remaining > 0 {
			compressedOnce = true
			if o.compressElement(elem, remaining) {
				kept = append(kept, elem)
				alloc.UsedTokens += elem.TokenCount
				stats.CompressedElements++
				continue
			}
		}

		stats.DroppedElements++
		o.logger.Debug("element dropped, over category budget",
			"category", string(elem.Category),
			"tokens", elem.TokenCount,
			"remaining", remaining)
	}

	return kept
}

// compressElement 把元素压缩到目标 Token 数，成功时原地更新
// 内容、Token 数和压缩级别。
func (o *Optimizer) compressElement(elem *ContextElement, targetTokens int) bool {
	kind := KindFor(elem.Category, elem.Content)
	strategy := NewStrategy(kind, o.counter)

	compressed, err := strategy.Compress(elem.Content, targetTokens, elem.Category)
	if err != nil {
		o.logger.Warn("element compression failed",
			"category", string(elem.Category), "error", err)
		return false
	}

	count := o.counter.Count(compressed)
	if count > int(float64(targetTokens)*CompressionTolerance) {
		o.logger.Warn("compressed element still over budget",
			"category", string(elem.Category),
			"tokens", count, "target", targetTokens)
		return false
	}

	original := len(elem.Content)
	elem.Content = compressed
	elem.TokenCount = count
	if original > 0 {
		elem.CompressionLevel = 1 - float64(len(compressed))/float64(original)
	}
	return true
}

// EnforceCeiling 保证最终上下文不超过 Token 上限。
//
// 超限时先做整体通用压缩；仍然超限则硬截断并追加说明。
func (o *Optimizer) EnforceCeiling(context string, ceiling int, stats *OptimizationStats) string {
	if o.counter.Count(context) <= ceiling {
		return context
	}

	o.logger.Warn("assembled context over ceiling, emergency compression",
		"tokens", o.counter.Count(context), "ceiling", ceiling)

	generic := &GenericCompressor{counter: o.counter}
	compressed, err := generic.Compress(context, ceiling, "")
	if err == nil && o.counter.Count(compressed) <= ceiling {
		stats.EmergencyApplied = true
		return compressed
	}

	// 最后手段：硬截断
	noticeCost := o.counter.Count(TruncationNotice)
	truncated := truncateToTokens(context, ceiling-noticeCost, o.counter)
	stats.EmergencyApplied = true
	stats.Truncated = true
	return truncated + TruncationNotice
}
