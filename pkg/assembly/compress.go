package assembly

import (
	"errors"
	"sort"
	"strings"
)

// CompressionKind 压缩策略的种类标签。
type CompressionKind string

const (
	// KindStructure 结构保持压缩。
	KindStructure CompressionKind = "structure"

	// KindConversation 对话感知压缩。
	KindConversation CompressionKind = "conversation"

	// KindGeneric 通用段落/句子级压缩。
	KindGeneric CompressionKind = "generic"
)

// MinCompressedChars 压缩结果的最小字符数。
// 非空输入的压缩结果不会短于该值。
const MinCompressedChars = 10

// CompressionTolerance 压缩结果允许超出目标的比例。
const CompressionTolerance = 1.1

// ErrCompressionFailed 压缩无法产生可用结果。
var ErrCompressionFailed = errors.New("compression produced no usable content")

// CompressionStrategy 定义把内容压缩到目标 Token 数的接口。
//
// 当前 Token 数不超过目标时原样返回（逐字节不变）。
// 压缩结果的实测 Token 数不超过目标的 1.1 倍。
type CompressionStrategy interface {
	Compress(content string, targetTokens int, category ContextCategory) (string, error)
}

// complianceTerms 压缩打分时优先保留的合规词汇。
var complianceTerms = []string{
	"disclosure", "disclaimer", "risk", "regulation", "compliance",
	"finra", "sec", "guarantee", "fiduciary", "advisory",
}

// structuredCategories 默认采用结构保持压缩的类别。
var structuredCategories = map[ContextCategory]bool{
	CategorySystemPrompt:      true,
	CategoryComplianceSources: true,
	CategoryDocumentSummaries: true,
}

// conversationMarkers 对话内容的说话人前缀。
var conversationMarkers = []string{
	"User:", "Assistant:", "Advisor:", "Client:", "Human:", "AI:",
}

// KindFor 按类别选择压缩策略种类，内容特征可以覆盖类别：
// 含对话标记的内容始终用对话策略，高度结构化的内容始终用
// 结构保持策略。
func KindFor(category ContextCategory, content string) CompressionKind {
	if hasConversationMarkers(content) || category == CategoryConversationHistory {
		return KindConversation
	}
	if structuredCategories[category] || isStructured(content) {
		return KindStructure
	}
	return KindGeneric
}

// NewStrategy 按种类创建压缩策略。
// counter 为 nil 时使用 DefaultTokenCounter。
func NewStrategy(kind CompressionKind, counter TokenCounter) CompressionStrategy {
	if counter == nil {
		counter = DefaultTokenCounter()
	}
	switch kind {
	case KindStructure:
		return &StructureCompressor{counter: counter}
	case KindConversation:
		return &ConversationCompressor{counter: counter}
	default:
		return &GenericCompressor{counter: counter}
	}
}

// hasConversationMarkers 返回内容是否带说话人前缀。
func hasConversationMarkers(content string) bool {
	for _, marker := range conversationMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// isStructured 判断内容是否高度结构化：
// 三成以上的行是标题、列表项或短标签即视为结构化。
func isStructured(content string) bool {
	lines := strings.Split(content, "\n")
	if len(lines) < 4 {
		return false
	}

	structural := 0
	for _, line := range lines {
		if isStructuralLine(line) {
			structural++
		}
	}

	return float64(structural)/float64(len(lines)) >= 0.3
}

// isStructuralLine 判断单行是否为结构行：Markdown 标题、列表项、
// 加粗段头或全大写短标签。
func isStructuralLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "- ") ||
		strings.HasPrefix(trimmed, "* ") ||
		strings.HasPrefix(trimmed, "**") {
		return true
	}

	// 数字编号列表
	if len(trimmed) > 2 && trimmed[0] >= '0' && trimmed[0] <= '9' &&
		(trimmed[1] == '.' || trimmed[1] == ')') {
		return true
	}

	// 全大写短标签（如 "DISCLOSURES:"）
	if len(trimmed) <= 40 && trimmed == strings.ToUpper(trimmed) &&
		strings.IndexFunc(trimmed, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0 {
		return true
	}

	return false
}

// complianceDensity 返回文本命中的合规词条数。
func complianceDensity(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range complianceTerms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return hits
}

// StructureCompressor 结构保持压缩。
//
// 始终保留全部结构行（标题、列表、段头），剩余预算按优先级
// 填充普通行：更长的行、含合规词汇的行、冒号结尾的定义行优先。
type StructureCompressor struct {
	counter TokenCounter
}

// Compress 实现 CompressionStrategy。
func (c *StructureCompressor) Compress(content string, targetTokens int, _ ContextCategory) (string, error) {
	if c.counter.Count(content) <= targetTokens {
		return content, nil
	}

	lines := strings.Split(content, "\n")

	type scoredLine struct {
		index int
		text  string
		score float64
	}

	var structural []scoredLine
	var regular []scoredLine

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if isStructuralLine(line) {
			structural = append(structural, scoredLine{index: i, text: line})
			continue
		}
		regular = append(regular, scoredLine{
			index: i,
			text:  line,
			score: c.lineScore(line),
		})
	}

	// 结构行先占预算
	used := 0
	kept := make([]scoredLine, 0, len(structural)+len(regular))
	for _, ln := range structural {
		used += c.counter.Count(ln.text + "\n")
		kept = append(kept, ln)
	}

	// 普通行按分数降序填充剩余预算
	sort.SliceStable(regular, func(i, j int) bool {
		return regular[i].score > regular[j].score
	})

	for _, ln := range regular {
		cost := c.counter.Count(ln.text + "\n")
		if used+cost <= targetTokens {
			kept = append(kept, ln)
			used += cost
			continue
		}

		// 截断首个放不下的行，之后的行全部丢弃
		remaining := targetTokens - used
		if remaining > 0 {
			truncated := truncateToTokens(ln.text, remaining, c.counter)
			if len(truncated) >= MinCompressedChars {
				kept = append(kept, scoredLine{index: ln.index, text: truncated})
				used += c.counter.Count(truncated)
			}
		}
		break
	}

	if len(kept) == 0 {
		return truncateToTokens(content, targetTokens, c.counter), nil
	}

	// 恢复原始顺序
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].index < kept[j].index
	})

	parts := make([]string, 0, len(kept))
	for _, ln := range kept {
		parts = append(parts, ln.text)
	}

	result := strings.Join(parts, "\n")

	// 结构行本身就超预算时退回硬截断
	if c.counter.Count(result) > int(float64(targetTokens)*CompressionTolerance) {
		result = truncateToTokens(result, targetTokens, c.counter)
	}

	return ensureMinimum(result, content), nil
}

// lineScore 普通行的保留优先级。
func (c *StructureCompressor) lineScore(line string) float64 {
	score := float64(len(line)) / 100
	if score > 2 {
		score = 2
	}

	score += float64(complianceDensity(line))

	// 冒号结尾的定义行
	if strings.HasSuffix(strings.TrimSpace(line), ":") {
		score += 0.5
	}

	return score
}

// ConversationCompressor 对话感知压缩。
//
// 把内容解析为按说话人分隔的轮次，从最近的轮次开始逆序填充
// 预算；保留的最旧轮次不是真正的开头时，前置截断说明。
type ConversationCompressor struct {
	counter TokenCounter
}

// Compress 实现 CompressionStrategy。
func (c *ConversationCompressor) Compress(content string, targetTokens int, _ ContextCategory) (string, error) {
	if c.counter.Count(content) <= targetTokens {
		return content, nil
	}

	exchanges := parseExchanges(content)
	if len(exchanges) == 0 {
		return truncateToTokens(content, targetTokens, c.counter), nil
	}

	notice := "[Earlier conversation truncated]\n"
	noticeCost := c.counter.Count(notice)

	// 从最近轮次逆序填充
	var kept []string
	used := noticeCost // 预留截断说明的空间
	oldest := len(exchanges)

	for i := len(exchanges) - 1; i >= 0; i-- {
		cost := c.counter.Count(exchanges[i] + "\n")
		if used+cost > targetTokens {
			// 剩余预算还够时允许截断的半个轮次
			remaining := targetTokens - used
			if remaining > noticeCost {
				partial := truncateToTokens(exchanges[i], remaining, c.counter)
				if len(partial) >= MinCompressedChars {
					kept = append([]string{partial}, kept...)
					oldest = i
				}
			}
			break
		}
		kept = append([]string{exchanges[i]}, kept...)
		used += cost
		oldest = i
	}

	if len(kept) == 0 {
		return truncateToTokens(content, targetTokens, c.counter), nil
	}

	result := strings.Join(kept, "\n")
	if oldest > 0 {
		result = notice + result
	}

	return ensureMinimum(result, content), nil
}

// parseExchanges 按说话人前缀把对话切分为轮次。
// 没有任何前缀时按段落切分。
func parseExchanges(content string) []string {
	lines := strings.Split(content, "\n")

	var exchanges []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			exchanges = append(exchanges, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range lines {
		if startsExchange(line) {
			flush()
		}
		if strings.TrimSpace(line) != "" {
			current = append(current, line)
		}
	}
	flush()

	if len(exchanges) <= 1 && !hasConversationMarkers(content) {
		// 无说话人标记，退化为段落
		return splitParagraphs(content)
	}

	return exchanges
}

// startsExchange 判断行首是否为新轮次。
func startsExchange(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, marker := range conversationMarkers {
		if strings.HasPrefix(trimmed, marker) {
			return true
		}
	}
	return false
}

// GenericCompressor 通用压缩。
//
// 先做段落级压缩（按位置、长度、合规词密度打分，保留高分段落
// 并恢复原始顺序）；段落不可分时降级到句子级；两者都不适用时
// 按二分查找硬截断并追加省略号。
type GenericCompressor struct {
	counter TokenCounter
}

// Compress 实现 CompressionStrategy。
func (c *GenericCompressor) Compress(content string, targetTokens int, _ ContextCategory) (string, error) {
	if c.counter.Count(content) <= targetTokens {
		return content, nil
	}

	if result, ok := c.compressUnits(splitParagraphs(content), "\n\n", targetTokens); ok {
		return ensureMinimum(result, content), nil
	}

	if result, ok := c.compressUnits(splitSentences(content), " ", targetTokens); ok {
		return ensureMinimum(result, content), nil
	}

	result := truncateToTokens(content, targetTokens, c.counter)
	if result == "" {
		return "", ErrCompressionFailed
	}
	return ensureMinimum(result, content), nil
}

// compressUnits 对文本单元（段落或句子）打分挑选。
// 单元数不足 2 或挑选结果为空时返回 ok=false。
func (c *GenericCompressor) compressUnits(units []string, sep string, targetTokens int) (string, bool) {
	if len(units) < 2 {
		return "", false
	}

	type scoredUnit struct {
		index int
		text  string
		score float64
	}

	scored := make([]scoredUnit, 0, len(units))
	for i, unit := range units {
		scored = append(scored, scoredUnit{
			index: i,
			text:  unit,
			score: unitScore(unit, i, len(units)),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	sepCost := c.counter.Count(sep)
	var kept []scoredUnit
	used := 0
	for _, u := range scored {
		cost := c.counter.Count(u.text) + sepCost
		if used+cost > targetTokens {
			continue
		}
		kept = append(kept, u)
		used += cost
	}

	if len(kept) == 0 {
		return "", false
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].index < kept[j].index
	})

	parts := make([]string, 0, len(kept))
	for _, u := range kept {
		parts = append(parts, u.text)
	}

	return strings.Join(parts, sep), true
}

// unitScore 段落/句子的保留优先级：首尾位置加权更高，
// 中等长度和合规词密度加分。
func unitScore(unit string, index, total int) float64 {
	score := 0.0

	// 首尾位置
	if index == 0 {
		score += 2.0
	} else if index == total-1 {
		score += 1.5
	}

	// 中等长度最优
	length := len(unit)
	switch {
	case length >= 100 && length <= 800:
		score += 1.0
	case length > 0:
		score += 0.3
	}

	score += float64(complianceDensity(unit)) * 0.8

	return score
}

// splitParagraphs 按空行切分段落。
func splitParagraphs(content string) []string {
	raw := strings.Split(content, "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(p))
		}
	}
	return paragraphs
}

// splitSentences 按句末标点切分句子。
func splitSentences(content string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

// truncateToTokens 用二分查找把文本硬截断到目标 Token 数，
// 并追加省略号。
func truncateToTokens(content string, targetTokens int, counter TokenCounter) string {
	if counter.Count(content) <= targetTokens {
		return content
	}
	if targetTokens <= 0 {
		return ""
	}

	const ellipsis = "..."

	runes := []rune(content)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if counter.Count(string(runes[:mid])+ellipsis) <= targetTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	if lo == 0 {
		return ""
	}
	return string(runes[:lo]) + ellipsis
}

// ensureMinimum 保证非空输入的压缩结果不短于 MinCompressedChars。
func ensureMinimum(result, original string) string {
	if len(result) >= MinCompressedChars || original == "" {
		return result
	}
	runes := []rune(original)
	if len(runes) <= MinCompressedChars {
		return original
	}
	return string(runes[:MinCompressedChars])
}

// 编译时接口检查
var _ CompressionStrategy = (*StructureCompressor)(nil)
var _ CompressionStrategy = (*ConversationCompressor)(nil)
var _ CompressionStrategy = (*GenericCompressor)(nil)
