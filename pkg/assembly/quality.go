package assembly

// QualityMetrics 单次组装的质量摘要，只做输出、从不持久化。
type QualityMetrics struct {
	// RelevanceCoverage 保留元素的平均相关性。
	RelevanceCoverage float64

	// Completeness 高优先级元素的保留比例。
	Completeness float64

	// Coherence 类别覆盖的连贯性：保留元素覆盖的类别数
	// 相对候选元素覆盖的类别数。
	Coherence float64

	// Diversity 保留元素的类别多样性。
	Diversity float64

	// TokenEfficiency 实际用量相对目标输入上限的利用率。
	TokenEfficiency float64

	// CompressionRatio 被压缩元素的平均压缩比例。
	CompressionRatio float64
}

// AssessQuality 根据候选元素与最终保留元素计算质量指标。
//
// candidates 是收集阶段产出的全部元素，selected 是优化后
// 保留的元素，totalTokens 是最终上下文的 Token 数。
func AssessQuality(candidates, selected []*ContextElement, totalTokens, targetTokens int) *QualityMetrics {
	metrics := &QualityMetrics{}
	if len(selected) == 0 {
		return metrics
	}

	// 平均相关性
	relevanceSum := 0.0
	for _, elem := range selected {
		relevanceSum += elem.RelevanceScore
	}
	metrics.RelevanceCoverage = relevanceSum / float64(len(selected))

	// 高优先级保留率
	highTotal, highKept := 0, 0
	for _, elem := range candidates {
		if elem.IsHighPriority() {
			highTotal++
		}
	}
	for _, elem := range selected {
		if elem.IsHighPriority() {
			highKept++
		}
	}
	if highTotal > 0 {
		metrics.Completeness = float64(highKept) / float64(highTotal)
	} else {
		metrics.Completeness = 1.0
	}

	// 类别覆盖
	candidateCategories := categorySet(candidates)
	selectedCategories := categorySet(selected)
	if len(candidateCategories) > 0 {
		metrics.Coherence = float64(len(selectedCategories)) / float64(len(candidateCategories))
	}
	metrics.Diversity = float64(len(selectedCategories)) / float64(len(AllCategories))

	// Token 利用率
	if targetTokens > 0 {
		metrics.TokenEfficiency = clamp(float64(totalTokens)/float64(targetTokens), 0, 1)
	}

	// 压缩比例：只统计实际被压缩的元素
	compressionSum, compressed := 0.0, 0
	for _, elem := range selected {
		if elem.CompressionLevel > 0 {
			compressionSum += elem.CompressionLevel
			compressed++
		}
	}
	if compressed > 0 {
		metrics.CompressionRatio = compressionSum / float64(compressed)
	}

	return metrics
}

// categorySet 返回元素覆盖的类别集合。
func categorySet(elements []*ContextElement) map[ContextCategory]bool {
	set := make(map[ContextCategory]bool)
	for _, elem := range elements {
		set[elem.Category] = true
	}
	return set
}
