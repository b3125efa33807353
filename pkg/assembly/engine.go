package assembly

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/easyops/advisorctx-go/pkg/otel"
)

// Request 单次上下文组装请求。
type Request struct {
	// SessionID 会话标识，用于定位对话历史与文档。
	SessionID string

	// UserInput 当前用户请求文本。
	UserInput string

	// CurrentContent 正在编辑的内容，非空时强制按打磨模式处理。
	CurrentContent string

	// ContextData 预取的合规规则、范例与检索结果，可为 nil。
	ContextData *ContextData

	// Transcript 预取的视频转写，可为 nil。
	Transcript *TranscriptContext
}

// Result 单次上下文组装结果。
type Result struct {
	// AssemblyID 本次组装的唯一标识。
	AssemblyID string

	// Context 组装好的最终上下文字符串。
	Context string

	// RequestType 分类得到的请求模式。
	RequestType RequestCategory

	// TotalTokens 最终上下文的 Token 数。
	TotalTokens int

	// TokenBudget 各类别的预算快照。
	TokenBudget map[ContextCategory]int

	// ContextBreakdown 各类别实际占用的 Token 数。
	ContextBreakdown map[ContextCategory]int

	// OptimizationApplied 是否发生过压缩、丢弃或超限降级。
	OptimizationApplied bool

	// FallbackUsed 流水线失败后是否走了兜底路径。
	FallbackUsed bool

	// Quality 本次组装的质量指标。
	Quality *QualityMetrics

	// Duration 组装耗时。
	Duration time.Duration
}

// Engine 上下文组装引擎。
//
// 流水线共五个阶段：分类、预算分配、收集、优化、渲染。
// 任何阶段失败都会落到兜底路径，AssembleContext 永不失败。
type Engine struct {
	config    *Config
	counter   TokenCounter
	classifer *Classifier
	allocator *Allocator
	scorer    *RelevanceScorer
	optimizer *Optimizer
	renderer  *Renderer
	gatherer  *CompositeGatherer

	convStore ConversationStore
	docStore  DocumentStore

	logger  otel.Logger
	tracer  otel.Tracer
	metrics otel.Metrics
}

// EngineOption 引擎配置选项。
type EngineOption func(*Engine)

// WithEngineConfig 设置组装配置。
func WithEngineConfig(cfg *Config) EngineOption {
	return func(e *Engine) {
		if cfg != nil {
			e.config = cfg
		}
	}
}

// WithConversationStore 设置会话历史协作者。
func WithConversationStore(store ConversationStore) EngineOption {
	return func(e *Engine) {
		e.convStore = store
	}
}

// WithDocumentStore 设置文档协作者。
func WithDocumentStore(store DocumentStore) EngineOption {
	return func(e *Engine) {
		e.docStore = store
	}
}

// WithLogger 设置日志器。
func WithLogger(logger otel.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer 设置追踪器。
func WithTracer(tracer otel.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithMetrics 设置指标收集器。
func WithMetrics(metrics otel.Metrics) EngineOption {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// NewEngine 创建上下文组装引擎。
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		config:  DefaultConfig(),
		logger:  otel.NewNoopLogger(),
		tracer:  otel.NewNoopTracer(),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.counter = e.config.Counter()
	e.classifer = NewClassifier()
	e.allocator = NewAllocator(e.counter)
	e.scorer = NewRelevanceScorer(e.config.Scoring)
	e.optimizer = NewOptimizer(e.counter, e.logger)
	e.renderer = NewRenderer(e.counter, e.logger)

	e.gatherer = NewCompositeGatherer([]Gatherer{
		NewConversationGatherer(e.convStore),
		NewComplianceGatherer(),
		NewDocumentGatherer(e.docStore),
		NewExampleGatherer(),
		NewTranscriptGatherer(),
	}, true, e.logger)

	return e
}

// AssembleContext 组装一次请求的完整上下文。
//
// 整条流水线包在单层错误兜底里：任何阶段的意外失败都会
// 返回只含用户输入与原始检索文本的最小结果，并标记
// FallbackUsed，方法本身不返回错误。
func (e *Engine) AssembleContext(ctx context.Context, req *Request) (result *Result) {
	start := time.Now()
	assemblyID := uuid.New().String()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("context assembly failed, using fallback",
				"assembly_id", assemblyID, "panic", rec)
			e.metrics.Counter(otel.MetricAssemblyFallbacks).Add(ctx, 1)
			result = e.fallbackResult(assemblyID, req, start)
		}
	}()

	if req == nil {
		req = &Request{}
	}

	ctx, span := e.tracer.Start(ctx, "assembly.assemble",
		otel.WithAttributes(otel.AssemblyID(assemblyID)))
	defer span.End()

	logger := e.logger.WithContext(ctx)
	logger.Info("context assembly started",
		"assembly_id", assemblyID, "session_id", req.SessionID)

	// 阶段一：请求分类
	requestType := e.classify(ctx, req)

	// 阶段二：预算分配
	budgets := e.allocate(ctx, requestType, req.UserInput)

	// 阶段三：收集候选元素
	candidates := e.gather(ctx, req)

	// 高级打分路径：细化收集元素的相关性
	if e.config.AdvancedScoring {
		e.rescore(candidates, req.UserInput)
	}

	// 阶段四：预算内优化
	selected, stats := e.optimize(ctx, candidates, budgets)

	// 收集阶段截断过的来源（超长检索命中、转写）同样算作降级
	if hasTruncatedSource(selected) {
		stats.Truncated = true
	}

	// 阶段五：渲染
	assembled := e.render(ctx, selected)
	assembled = e.optimizer.EnforceCeiling(assembled, e.config.TokenCeiling, stats)

	totalTokens := e.counter.Count(assembled)
	target := e.config.TargetInputTokens()

	summary := e.renderer.Summary(selected)
	result = &Result{
		AssemblyID:          assemblyID,
		Context:             assembled,
		RequestType:         requestType,
		TotalTokens:         totalTokens,
		TokenBudget:         budgetSnapshot(budgets),
		ContextBreakdown:    summary.TokensByCategory,
		OptimizationApplied: stats.Applied() || totalTokens > target,
		Quality:             AssessQuality(candidates, selected, totalTokens, target),
		Duration:            time.Since(start),
	}

	e.recordMetrics(ctx, result)
	logger.Info("context assembly completed",
		"assembly_id", assemblyID,
		"request_type", string(requestType),
		"total_tokens", totalTokens,
		"elements", summary.ElementCount,
		"optimized", result.OptimizationApplied)

	return result
}

func (e *Engine) classify(ctx context.Context, req *Request) RequestCategory {
	_, span := e.tracer.Start(ctx, "assembly.classify")
	defer span.End()

	requestType := e.classifer.Classify(req.UserInput, req.CurrentContent)
	span.SetAttributes(attribute.String("assembly.request_type", string(requestType)))
	return requestType
}

func (e *Engine) allocate(ctx context.Context, requestType RequestCategory, userInput string) BudgetMap {
	_, span := e.tracer.Start(ctx, "assembly.allocate")
	defer span.End()

	budgets := e.allocator.Allocate(requestType, userInput)
	span.SetAttributes(attribute.Int("assembly.budget_total", budgets.Total()))
	return budgets
}

// gather 收集全部候选元素：外部来源经收集器，用户输入与
// 当前内容由引擎直接合成，保证两者始终在场。
func (e *Engine) gather(ctx context.Context, req *Request) []*ContextElement {
	gatherCtx, span := e.tracer.Start(ctx, "assembly.gather")
	defer span.End()

	input := &GatherInput{
		SessionID:   req.SessionID,
		UserInput:   req.UserInput,
		ContextData: req.ContextData,
		Transcript:  req.Transcript,
		Config:      e.config,
	}

	candidates, _ := e.gatherer.Gather(gatherCtx, input)

	if req.UserInput != "" {
		elem, err := NewContextElement(req.UserInput, CategoryUserInput,
			WithPriority(PriorityUserInput), WithRelevance(1.0))
		if err == nil {
			candidates = append(candidates, elem)
		}
	}

	if req.CurrentContent != "" {
		elem, err := NewContextElement(req.CurrentContent, CategoryCurrentContent,
			WithPriority(PriorityCurrentContent), WithRelevance(1.0))
		if err == nil {
			candidates = append(candidates, elem)
		}
	}

	span.SetAttributes(attribute.Int("assembly.candidates", len(candidates)))
	return candidates
}

// rescore 高级打分：对收集到的元素计算细化相关性。
// 合规来源、用户输入和当前内容始终保持相关性不变。
func (e *Engine) rescore(candidates []*ContextElement, userInput string) {
	for _, elem := range candidates {
		switch elem.Category {
		case CategoryComplianceSources, CategoryUserInput, CategoryCurrentContent:
			continue
		}

		contentType := ""
		if v, ok := elem.GetMetadata("content_type"); ok {
			contentType, _ = v.(string)
		}

		elem.RelevanceScore = e.scorer.Score(elem.Content, userInput, contentType, elem.SourceMetadata)
	}
}

func (e *Engine) optimize(ctx context.Context, candidates []*ContextElement, budgets BudgetMap) ([]*ContextElement, *OptimizationStats) {
	_, span := e.tracer.Start(ctx, "assembly.optimize")
	defer span.End()

	selected, stats := e.optimizer.Optimize(candidates, budgets)
	span.SetAttributes(
		attribute.Int("assembly.selected", len(selected)),
		attribute.Int("assembly.compressed", stats.CompressedElements),
		attribute.Int("assembly.dropped", stats.DroppedElements),
	)
	if stats.CompressedElements > 0 {
		e.metrics.Counter(otel.MetricAssemblyCompressed).Add(ctx, int64(stats.CompressedElements))
	}
	if stats.DroppedElements > 0 {
		e.metrics.Counter(otel.MetricAssemblyDropped).Add(ctx, int64(stats.DroppedElements))
	}
	return selected, stats
}

func (e *Engine) render(ctx context.Context, selected []*ContextElement) string {
	_, span := e.tracer.Start(ctx, "assembly.render")
	defer span.End()

	return e.renderer.Build(selected)
}

// fallbackResult 兜底结果：仅由用户输入和已有的原始检索文本
// 构成，Token 数使用哨兵常量。
func (e *Engine) fallbackResult(assemblyID string, req *Request, start time.Time) *Result {
	var userInput string
	var search []string
	if req != nil {
		userInput = req.UserInput
		if req.ContextData != nil {
			search = req.ContextData.SearchResults
		}
	}

	context := fmt.Sprintf("User Request: %s", userInput)
	for _, raw := range search {
		if raw == "" {
			continue
		}
		context += "\n\n" + raw
	}

	return &Result{
		AssemblyID:          assemblyID,
		Context:             context,
		RequestType:         CategoryCreation,
		TotalTokens:         FallbackTokenSentinel,
		TokenBudget:         map[ContextCategory]int{},
		ContextBreakdown:    map[ContextCategory]int{},
		OptimizationApplied: false,
		FallbackUsed:        true,
		Quality:             &QualityMetrics{},
		Duration:            time.Since(start),
	}
}

// recordMetrics 上报单次组装的指标。
func (e *Engine) recordMetrics(ctx context.Context, result *Result) {
	e.metrics.Counter(otel.MetricAssemblyRuns).Add(ctx, 1,
		otel.NewAttr(otel.AttrAssemblyRequestType, string(result.RequestType)))
	e.metrics.Histogram(otel.MetricAssemblyDuration).Record(ctx,
		float64(result.Duration.Milliseconds()))
	e.metrics.Histogram(otel.MetricAssemblyTokens).Record(ctx, float64(result.TotalTokens))

	if caching, ok := e.counter.(*CachingCounter); ok {
		e.metrics.Gauge(otel.MetricTokenCacheHitRate).Set(ctx, caching.Stats().HitRate())
	}
}

// hasTruncatedSource 检查是否有元素在收集阶段被截断过。
func hasTruncatedSource(elements []*ContextElement) bool {
	for _, elem := range elements {
		if v, ok := elem.GetMetadata("truncated"); ok {
			if truncated, _ := v.(bool); truncated {
				return true
			}
		}
	}
	return false
}

// budgetSnapshot 提取各类别的分配值。
func budgetSnapshot(budgets BudgetMap) map[ContextCategory]int {
	snapshot := make(map[ContextCategory]int, len(budgets))
	for category, alloc := range budgets {
		snapshot[category] = alloc.AllocatedTokens
	}
	return snapshot
}

// ChatMessages 把组装结果转换为聊天补全消息：上下文作为系统
// 消息，用户输入作为用户消息。
func (r *Result) ChatMessages(userInput string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if r.Context != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.Context,
		})
	}
	if userInput != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: userInput,
		})
	}
	return messages
}
