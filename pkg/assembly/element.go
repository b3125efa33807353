package assembly

import (
	"errors"
)

// ContextCategory 表示上下文元素的来源类别。
type ContextCategory string

const (
	// CategorySystemPrompt 系统提示。
	CategorySystemPrompt ContextCategory = "system_prompt"

	// CategoryUserInput 用户输入（始终包含，最高优先级）。
	CategoryUserInput ContextCategory = "user_input"

	// CategoryCurrentContent 待润色的当前内容。
	CategoryCurrentContent ContextCategory = "current_content"

	// CategoryConversationHistory 会话对话历史。
	CategoryConversationHistory ContextCategory = "conversation_history"

	// CategoryComplianceSources 合规规则与免责声明。
	CategoryComplianceSources ContextCategory = "compliance_sources"

	// CategoryVectorSearchResults 相似度检索命中的范例。
	CategoryVectorSearchResults ContextCategory = "vector_search_results"

	// CategoryDocumentSummaries 上传文档的摘要。
	CategoryDocumentSummaries ContextCategory = "document_summaries"

	// CategoryYouTubeContext 视频转写上下文。
	CategoryYouTubeContext ContextCategory = "youtube_context"
)

// AllCategories 按预算分配顺序列出全部类别。
var AllCategories = []ContextCategory{
	CategorySystemPrompt,
	CategoryUserInput,
	CategoryCurrentContent,
	CategoryConversationHistory,
	CategoryComplianceSources,
	CategoryVectorSearchResults,
	CategoryDocumentSummaries,
	CategoryYouTubeContext,
}

// 选择与压缩使用的共享阈值。
const (
	// HighPriorityThreshold 有效优先级达到该值即视为高优先级。
	HighPriorityThreshold = 8.0

	// CompressibleMinTokens 低于该 Token 数的元素不值得压缩。
	CompressibleMinTokens = 500

	// CompressibleMaxLevel 压缩程度达到该值后不再压缩。
	CompressibleMaxLevel = 0.8
)

// ErrEmptyContent 元素内容为空。
var ErrEmptyContent = errors.New("context element content is empty")

// ContextElement 是流水线中流转的基本工作单元：
// 一段来自单一来源、带评分和 Token 计量的候选提示文本。
//
// 生命周期：由 Gatherer 在收集阶段创建；仅 Optimizer 在压缩时
// 修改 Content/TokenCount/CompressionLevel/SourceMetadata；
// 交给 Renderer 后不再变更。
type ContextElement struct {
	// Content 元素的文本内容，非空。
	Content string

	// Category 元素的来源类别。
	Category ContextCategory

	// PriorityScore 静态重要性，与当前请求无关（0-10）。
	PriorityScore float64

	// RelevanceScore 相对当前请求的动态重要性（0-1）。
	RelevanceScore float64

	// TokenCount 内容的 Token 数量。
	TokenCount int

	// SourceMetadata 来源信息（id、标题、相似度等），
	// 压缩时仅追加压缩标记，不改动已有键。
	SourceMetadata map[string]interface{}

	// CompressionLevel 被移除的原始内容比例（0 = 未压缩）。
	CompressionLevel float64
}

// ElementOption 配置 ContextElement。
type ElementOption func(*ContextElement)

// WithPriority 设置静态优先级（0-10，超出范围会被钳制）。
func WithPriority(score float64) ElementOption {
	return func(e *ContextElement) {
		e.PriorityScore = clamp(score, 0, 10)
	}
}

// WithRelevance 设置相关性评分（0-1，超出范围会被钳制）。
func WithRelevance(score float64) ElementOption {
	return func(e *ContextElement) {
		e.RelevanceScore = clamp(score, 0, 1)
	}
}

// WithSourceMetadata 设置来源元数据。
func WithSourceMetadata(metadata map[string]interface{}) ElementOption {
	return func(e *ContextElement) {
		e.SourceMetadata = metadata
	}
}

// WithElementTokenCount 设置 Token 数量（跳过自动计算）。
func WithElementTokenCount(count int) ElementOption {
	return func(e *ContextElement) {
		e.TokenCount = count
	}
}

// NewContextElement 使用给定内容和类别创建新的 ContextElement。
// 空内容会被拒绝。如果未指定，Token 数量会用默认计数器自动计算。
func NewContextElement(content string, category ContextCategory, opts ...ElementOption) (*ContextElement, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	e := &ContextElement{
		Content:        content,
		Category:       category,
		SourceMetadata: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.TokenCount == 0 {
		e.TokenCount = DefaultTokenCounter().Count(content)
	}

	return e, nil
}

// EffectivePriority 返回被相关性放大后的优先级，
// 是优化阶段的排序键。
func (e *ContextElement) EffectivePriority() float64 {
	return e.PriorityScore * (1 + e.RelevanceScore)
}

// CompressionRatio 返回压缩后保留的内容比例。
func (e *ContextElement) CompressionRatio() float64 {
	return 1 - e.CompressionLevel
}

// IsHighPriority 返回元素是否为高优先级。
func (e *ContextElement) IsHighPriority() bool {
	return e.EffectivePriority() >= HighPriorityThreshold
}

// IsCompressible 返回元素是否还有压缩空间。
func (e *ContextElement) IsCompressible() bool {
	return e.TokenCount > CompressibleMinTokens && e.CompressionLevel < CompressibleMaxLevel
}

// SetMetadata 设置来源元数据值。
func (e *ContextElement) SetMetadata(key string, value interface{}) {
	if e.SourceMetadata == nil {
		e.SourceMetadata = make(map[string]interface{})
	}
	e.SourceMetadata[key] = value
}

// GetMetadata 获取来源元数据值。
func (e *ContextElement) GetMetadata(key string) (interface{}, bool) {
	if e.SourceMetadata == nil {
		return nil, false
	}
	v, ok := e.SourceMetadata[key]
	return v, ok
}

// Clone 创建元素的深拷贝。
func (e *ContextElement) Clone() *ContextElement {
	clone := &ContextElement{
		Content:          e.Content,
		Category:         e.Category,
		PriorityScore:    e.PriorityScore,
		RelevanceScore:   e.RelevanceScore,
		TokenCount:       e.TokenCount,
		CompressionLevel: e.CompressionLevel,
		SourceMetadata:   make(map[string]interface{}, len(e.SourceMetadata)),
	}

	for k, v := range e.SourceMetadata {
		clone.SourceMetadata[k] = v
	}

	return clone
}

// clamp 将 v 钳制到 [lo, hi]。
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
