package assembly

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	coreerrors "github.com/easyops/advisorctx-go/pkg/core/errors"
	"github.com/easyops/advisorctx-go/pkg/otel"
)

// 各来源的静态优先级基线。用户输入和当前内容由引擎直接合成，
// 始终以最高优先级包含。
const (
	PriorityUserInput      = 10.0
	PriorityCurrentContent = 9.5
	PriorityCompliance     = 9.0
	PriorityExampleBase    = 8.0
	PriorityConversation   = 7.0
	PriorityTranscript     = 6.5
	PriorityDocument       = 6.0
)

// DefaultCollaboratorTimeout 外部协作者单次调用的默认超时。
// 超时按空结果处理，不会卡住整条流水线。
const DefaultCollaboratorTimeout = 5 * time.Second

// collaboratorTimeout 返回配置的协作者超时，未配置时用回退值。
func collaboratorTimeout(cfg *Config, fallback time.Duration) time.Duration {
	if cfg != nil && cfg.CollaboratorTimeout > 0 {
		return cfg.CollaboratorTimeout
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultCollaboratorTimeout
}

// ConversationStore 会话历史协作者。
type ConversationStore interface {
	// GetConversationContext 返回会话的对话文本，无历史时返回空串。
	GetConversationContext(ctx context.Context, sessionID string) (string, error)
}

// DocumentStore 上传文档协作者。
type DocumentStore interface {
	// GetSessionDocuments 返回会话的全部文档记录。
	GetSessionDocuments(ctx context.Context, sessionID string, includeContent bool) ([]SessionDocument, error)
}

// SessionDocument 上传文档的记录。
type SessionDocument struct {
	ID               string
	Title            string
	ContentType      string
	WordCount        int
	ProcessingStatus string
	Summary          string
	Metadata         map[string]interface{}
}

// KnowledgeItem 合规规则、免责声明或检索范例的通用结构。
type KnowledgeItem struct {
	Title           string
	ContentText     string
	Tags            []string
	SimilarityScore float64
}

// ContextData 调用方预取的知识库数据。
type ContextData struct {
	Rules         []KnowledgeItem
	Disclaimers   []KnowledgeItem
	Examples      []KnowledgeItem
	SearchResults []string
}

// TranscriptContext 预取的视频转写数据。
type TranscriptContext struct {
	Transcript string
	Metadata   TranscriptMetadata
	Stats      TranscriptStats
}

// TranscriptMetadata 转写来源信息。
type TranscriptMetadata struct {
	URL   string
	Title string
}

// TranscriptStats 转写统计。
type TranscriptStats struct {
	WordCount int
}

// GatherInput 收集阶段的输入数据。
type GatherInput struct {
	// SessionID 会话标识。
	SessionID string

	// UserInput 当前用户请求。
	UserInput string

	// ContextData 预取的知识库数据，可为 nil。
	ContextData *ContextData

	// Transcript 预取的视频转写，可为 nil。
	Transcript *TranscriptContext

	// Config 装配配置。
	Config *Config
}

// Gatherer 定义从单一来源收集上下文元素的接口。
//
// 返回的 error 只作记录用途：组合收集器吞掉单个来源的失败并
// 继续其余来源，单一来源的故障不会中断整次装配。
type Gatherer interface {
	Gather(ctx context.Context, input *GatherInput) ([]*ContextElement, error)
}

// ConversationGatherer 从会话存储收集对话历史。
type ConversationGatherer struct {
	store   ConversationStore
	timeout time.Duration
}

// NewConversationGatherer 创建 ConversationGatherer。
func NewConversationGatherer(store ConversationStore) *ConversationGatherer {
	return &ConversationGatherer{
		store:   store,
		timeout: DefaultCollaboratorTimeout,
	}
}

// Gather 收集对话历史，包装为单个元素。
func (g *ConversationGatherer) Gather(ctx context.Context, input *GatherInput) ([]*ContextElement, error) {
	if g.store == nil || input.SessionID == "" {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout(input.Config, g.timeout))
	defer cancel()

	transcript, err := g.store.GetConversationContext(callCtx, input.SessionID)
	if err != nil {
		return nil, coreerrors.WrapError(collaboratorError(err), "conversation store")
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, nil
	}

	element, err := NewContextElement(transcript, CategoryConversationHistory,
		WithPriority(PriorityConversation),
		WithRelevance(0.8),
		WithSourceMetadata(map[string]interface{}{
			"session_id": input.SessionID,
		}),
	)
	if err != nil {
		return nil, err
	}

	return []*ContextElement{element}, nil
}

// ComplianceGatherer 把预取的合规规则和免责声明格式化为单个元素。
// 合规内容始终相关（相关性 1.0）。
type ComplianceGatherer struct{}

// NewComplianceGatherer 创建 ComplianceGatherer。
func NewComplianceGatherer() *ComplianceGatherer {
	return &ComplianceGatherer{}
}

// Gather 收集合规规则与免责声明。
// 缺失标题或正文的条目单独跳过，不影响其余条目。
func (g *ComplianceGatherer) Gather(_ context.Context, input *GatherInput) ([]*ContextElement, error) {
	if input.ContextData == nil {
		return nil, nil
	}

	cfg := input.Config
	maxRules, maxDisclaimers := 5, 3
	if cfg != nil {
		maxRules, maxDisclaimers = cfg.MaxComplianceRules, cfg.MaxDisclaimers
	}

	var sb strings.Builder
	count := 0
	for _, rule := range input.ContextData.Rules {
		if count >= maxRules {
			break
		}
		if rule.Title == "" || rule.ContentText == "" {
			continue
		}
		fmt.Fprintf(&sb, "Rule: %s\n%s\n\n", rule.Title, rule.ContentText)
		count++
	}

	count = 0
	for _, d := range input.ContextData.Disclaimers {
		if count >= maxDisclaimers {
			break
		}
		if d.Title == "" || d.ContentText == "" {
			continue
		}
		fmt.Fprintf(&sb, "Disclaimer: %s\n%s\n\n", d.Title, d.ContentText)
		count++
	}

	content := strings.TrimSpace(sb.String())
	if content == "" {
		return nil, nil
	}

	element, err := NewContextElement(content, CategoryComplianceSources,
		WithPriority(PriorityCompliance),
		WithRelevance(1.0),
		WithSourceMetadata(map[string]interface{}{
			"rule_count":       len(input.ContextData.Rules),
			"disclaimer_count": len(input.ContextData.Disclaimers),
		}),
	)
	if err != nil {
		return nil, err
	}

	return []*ContextElement{element}, nil
}

// DocumentGatherer 从文档存储收集已处理完成的文档摘要。
type DocumentGatherer struct {
	store   DocumentStore
	timeout time.Duration
}

// NewDocumentGatherer 创建 DocumentGatherer。
func NewDocumentGatherer(store DocumentStore) *DocumentGatherer {
	return &DocumentGatherer{
		store:   store,
		timeout: DefaultCollaboratorTimeout,
	}
}

// Gather 收集文档摘要。
// 处理中或失败的文档静默排除，仅采用 processing_status 为
// completed 的文档。
func (g *DocumentGatherer) Gather(ctx context.Context, input *GatherInput) ([]*ContextElement, error) {
	if g.store == nil || input.SessionID == "" {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout(input.Config, g.timeout))
	defer cancel()

	docs, err := g.store.GetSessionDocuments(callCtx, input.SessionID, false)
	if err != nil {
		return nil, coreerrors.WrapError(collaboratorError(err), "document store")
	}

	elements := make([]*ContextElement, 0, len(docs))
	for _, doc := range docs {
		if doc.ProcessingStatus != "completed" || doc.Summary == "" {
			continue
		}

		content := formatDocument(doc)
		metadata := map[string]interface{}{
			"document_id": doc.ID,
			"title":       doc.Title,
		}

		element, err := NewContextElement(content, CategoryDocumentSummaries,
			WithPriority(PriorityDocument),
			WithRelevance(0.7),
			WithSourceMetadata(metadata),
		)
		if err != nil {
			continue
		}
		elements = append(elements, element)
	}

	return elements, nil
}

// formatDocument 渲染文档摘要：标题头 + 摘要 + 可用的视觉/表格信息。
func formatDocument(doc SessionDocument) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Document: %s (%s, %d words)\n%s", doc.Title, doc.ContentType, doc.WordCount, doc.Summary)

	if doc.Metadata != nil {
		if visuals, ok := doc.Metadata["visual_summary"].(string); ok && visuals != "" {
			sb.WriteString("\nVisuals: " + visuals)
		}
		if tables, ok := doc.Metadata["table_summary"].(string); ok && tables != "" {
			sb.WriteString("\nTables: " + tables)
		}
	}

	return sb.String()
}

// ExampleGatherer 包装预取的相似度检索命中。
// 结果已由外部检索协作者排好序，按名次递减优先级。
type ExampleGatherer struct{}

// NewExampleGatherer 创建 ExampleGatherer。
func NewExampleGatherer() *ExampleGatherer {
	return &ExampleGatherer{}
}

// Gather 收集检索范例和原始检索文本。
func (g *ExampleGatherer) Gather(_ context.Context, input *GatherInput) ([]*ContextElement, error) {
	if input.ContextData == nil {
		return nil, nil
	}

	maxExamples := 5
	if input.Config != nil {
		maxExamples = input.Config.MaxExamples
	}

	var elements []*ContextElement
	rank := 0

	for _, ex := range input.ContextData.Examples {
		if rank >= maxExamples {
			break
		}
		if ex.ContentText == "" {
			continue
		}

		content := ex.ContentText
		if ex.Title != "" {
			content = "Example: " + ex.Title + "\n" + content
		}

		relevance := ex.SimilarityScore
		if relevance <= 0 {
			relevance = 0.7
		}

		element, err := NewContextElement(content, CategoryVectorSearchResults,
			WithPriority(PriorityExampleBase-0.5*float64(rank)),
			WithRelevance(relevance),
			WithSourceMetadata(map[string]interface{}{
				"title":            ex.Title,
				"tags":             ex.Tags,
				"similarity_score": ex.SimilarityScore,
				"rank":             rank,
			}),
		)
		if err != nil {
			continue
		}
		elements = append(elements, element)
		rank++
	}

	maxChars := DefaultSearchResultMaxChars
	if input.Config != nil && input.Config.SearchResultMaxChars > 0 {
		maxChars = input.Config.SearchResultMaxChars
	}

	// 原始检索文本同样计入名次递减，超长命中截断后按降级上报
	for _, raw := range input.ContextData.SearchResults {
		if raw == "" {
			continue
		}

		truncated := false
		if len(raw) > maxChars {
			runes := []rune(raw)
			if len(runes) > maxChars {
				runes = runes[:maxChars]
			}
			raw = string(runes) + "\n[Search result truncated]"
			truncated = true
		}

		element, err := NewContextElement(raw, CategoryVectorSearchResults,
			WithPriority(PriorityExampleBase-0.5*float64(rank)),
			WithRelevance(0.6),
			WithSourceMetadata(map[string]interface{}{
				"rank":      rank,
				"raw":       true,
				"truncated": truncated,
			}),
		)
		if err != nil {
			continue
		}
		elements = append(elements, element)
		rank++
	}

	return elements, nil
}

// TranscriptGatherer 包装预取的视频转写。
type TranscriptGatherer struct{}

// NewTranscriptGatherer 创建 TranscriptGatherer。
func NewTranscriptGatherer() *TranscriptGatherer {
	return &TranscriptGatherer{}
}

// Gather 收集视频转写，超过配置长度的原始转写先按字符截断
// 再计数，并附加截断说明。
func (g *TranscriptGatherer) Gather(_ context.Context, input *GatherInput) ([]*ContextElement, error) {
	if input.Transcript == nil || strings.TrimSpace(input.Transcript.Transcript) == "" {
		return nil, nil
	}

	maxChars := DefaultTranscriptMaxChars
	if input.Config != nil && input.Config.TranscriptMaxChars > 0 {
		maxChars = input.Config.TranscriptMaxChars
	}

	transcript := input.Transcript.Transcript
	truncated := false
	if len(transcript) > maxChars {
		transcript = transcript[:maxChars] + "\n[Transcript truncated]"
		truncated = true
	}

	var sb strings.Builder
	if input.Transcript.Metadata.Title != "" {
		fmt.Fprintf(&sb, "Video: %s\n", input.Transcript.Metadata.Title)
	}
	sb.WriteString(transcript)

	element, err := NewContextElement(sb.String(), CategoryYouTubeContext,
		WithPriority(PriorityTranscript),
		WithRelevance(0.6),
		WithSourceMetadata(map[string]interface{}{
			"url":        input.Transcript.Metadata.URL,
			"title":      input.Transcript.Metadata.Title,
			"word_count": input.Transcript.Stats.WordCount,
			"truncated":  truncated,
		}),
	)
	if err != nil {
		return nil, err
	}

	return []*ContextElement{element}, nil
}

// CompositeGatherer 组合多个收集器并发执行。
//
// 单个收集器的失败只记日志并按空结果处理，保证收集阶段
// 永不失败；全部收集器 join 完成后才进入优化阶段。
type CompositeGatherer struct {
	gatherers []Gatherer
	parallel  bool
	logger    otel.Logger
}

// NewCompositeGatherer 创建 CompositeGatherer。
// logger 为 nil 时使用 Noop。
func NewCompositeGatherer(gatherers []Gatherer, parallel bool, logger otel.Logger) *CompositeGatherer {
	if logger == nil {
		logger = otel.NewNoopLogger()
	}
	return &CompositeGatherer{
		gatherers: gatherers,
		parallel:  parallel,
		logger:    logger,
	}
}

// Gather 从全部收集器收集元素。
func (g *CompositeGatherer) Gather(ctx context.Context, input *GatherInput) ([]*ContextElement, error) {
	if g.parallel {
		return g.gatherParallel(ctx, input), nil
	}
	return g.gatherSequential(ctx, input), nil
}

func (g *CompositeGatherer) gatherSequential(ctx context.Context, input *GatherInput) []*ContextElement {
	var all []*ContextElement

	for _, gatherer := range g.gatherers {
		elements, err := g.gatherOne(ctx, gatherer, input)
		if err != nil {
			g.logger.Warn("context gatherer failed",
				"error", err, "retryable", coreerrors.IsRetryable(err))
			continue
		}
		all = append(all, elements...)
	}

	return all
}

// collaboratorError 把底层超时规整为统一的协作者超时错误。
func collaboratorError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return coreerrors.ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return coreerrors.ErrContextCanceled
	}
	return err
}

// gatherOne 执行单个收集器，协作者的 panic 转为错误。
func (g *CompositeGatherer) gatherOne(ctx context.Context, gth Gatherer, input *GatherInput) (elements []*ContextElement, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			elements = nil
			err = fmt.Errorf("gatherer panic: %v", rec)
		}
	}()
	return gth.Gather(ctx, input)
}

func (g *CompositeGatherer) gatherParallel(ctx context.Context, input *GatherInput) []*ContextElement {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		all []*ContextElement
	)

	for _, gatherer := range g.gatherers {
		wg.Add(1)
		go func(gth Gatherer) {
			defer wg.Done()

			elements, err := g.gatherOne(ctx, gth, input)
			if err != nil {
				g.logger.Warn("context gatherer failed",
					"error", err, "retryable", coreerrors.IsRetryable(err))
				return
			}

			mu.Lock()
			all = append(all, elements...)
			mu.Unlock()
		}(gatherer)
	}

	wg.Wait()
	return all
}

// 编译时接口检查
var _ Gatherer = (*ConversationGatherer)(nil)
var _ Gatherer = (*ComplianceGatherer)(nil)
var _ Gatherer = (*DocumentGatherer)(nil)
var _ Gatherer = (*ExampleGatherer)(nil)
var _ Gatherer = (*TranscriptGatherer)(nil)
var _ Gatherer = (*CompositeGatherer)(nil)
