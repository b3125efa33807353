package assembly

import (
	"strings"
)

// RequestCategory 表示一次装配调用的请求类型分类结果。
// 分类结果不可变，驱动预算表的选择。
type RequestCategory string

const (
	// CategoryCreation 创作新内容。
	CategoryCreation RequestCategory = "creation_mode"

	// CategoryRefinement 润色已有内容。
	CategoryRefinement RequestCategory = "refinement_mode"

	// CategoryAnalysis 分析或评估内容。
	CategoryAnalysis RequestCategory = "analysis_mode"

	// CategoryConversation 普通对话（默认降级）。
	CategoryConversation RequestCategory = "conversation_mode"
)

// Classifier 根据用户输入和是否存在当前内容判定请求类型。
type Classifier struct {
	refinementKeywords []string
	analysisKeywords   []string
	creationKeywords   []string
}

// NewClassifier 创建带默认关键词表的 Classifier。
func NewClassifier() *Classifier {
	return &Classifier{
		refinementKeywords: []string{
			"edit", "change", "modify", "update",
			"revise", "improve", "make it", "adjust",
			"rewrite", "fix",
		},
		analysisKeywords: []string{
			"analyze", "review", "compare", "evaluate",
			"assess", "what do you think", "critique",
		},
		creationKeywords: []string{
			"create", "write", "generate", "draft",
			"compose", "help me with",
		},
	}
}

// Classify 判定请求类型。匹配按优先级进行，首个命中即返回：
//
//  1. 存在当前内容，或输入含润色关键词 → 润色。
//     润色请求即使提到 "create" 也必须按润色处理，
//     因为当前内容正处于编辑状态。
//  2. 输入含分析关键词 → 分析。
//  3. 输入含创作关键词 → 创作。
//  4. 其余（含空输入）→ 对话。
//
// 关键词按大小写不敏感的子串匹配。相同输入必然得到相同结果。
func (c *Classifier) Classify(userInput, currentContent string) RequestCategory {
	if currentContent != "" {
		return CategoryRefinement
	}

	input := strings.ToLower(userInput)
	if input == "" {
		return CategoryConversation
	}

	if containsAny(input, c.refinementKeywords) {
		return CategoryRefinement
	}
	if containsAny(input, c.analysisKeywords) {
		return CategoryAnalysis
	}
	if containsAny(input, c.creationKeywords) {
		return CategoryCreation
	}

	return CategoryConversation
}

// containsAny 返回 s 是否包含任一关键词。
func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
