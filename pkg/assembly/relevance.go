package assembly

import (
	"strings"
)

// ScoringWeights 五个相关性子评分的权重。
type ScoringWeights struct {
	// KeywordOverlap 与请求的关键词重叠。
	KeywordOverlap float64
	// DomainDensity 领域关键词密度。
	DomainDensity float64
	// TypeAlignment 内容类型匹配度。
	TypeAlignment float64
	// StructureSimilarity 结构相似度。
	StructureSimilarity float64
	// Quality 质量启发式。
	Quality float64
}

// DomainKeywords 分三档权重的领域关键词表。
type DomainKeywords struct {
	// High 权重 1.0 的核心词。
	High []string
	// Medium 权重 0.6 的相关词。
	Medium []string
	// Low 权重 0.3 的外围词。
	Low []string
}

// ScoringConfig 相关性评分的全部可调数据。
//
// 权重和关键词表都是手工调参的启发式，保留为数据而非硬编码，
// 便于后续调整。
type ScoringConfig struct {
	// Weights 子评分权重，总和应为 1。
	Weights ScoringWeights

	// Domain 领域关键词表。
	Domain DomainKeywords

	// ContentTypes 各目标内容类型的特征词集合。
	// 未知内容类型按中性 0.5 计。
	ContentTypes map[string][]string
}

// DefaultScoringConfig 返回面向财务咨询内容的默认评分配置。
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		Weights: ScoringWeights{
			KeywordOverlap:      0.30,
			DomainDensity:       0.25,
			TypeAlignment:       0.20,
			StructureSimilarity: 0.15,
			Quality:             0.10,
		},
		Domain: DomainKeywords{
			High: []string{
				"retirement", "investment", "portfolio", "401k", "ira",
				"estate", "annuity", "fiduciary", "diversification",
				"compliance", "finra", "sec",
			},
			Medium: []string{
				"planning", "savings", "wealth", "income", "tax",
				"insurance", "pension", "asset", "fund", "advisor",
			},
			Low: []string{
				"money", "financial", "market", "client", "goal",
				"budget", "risk", "return",
			},
		},
		ContentTypes: map[string][]string{
			"linkedin_post": {
				"linkedin", "social", "professional", "network",
				"post", "engagement",
			},
			"email": {
				"email", "subject", "dear", "regards", "newsletter",
			},
			"blog_post": {
				"blog", "article", "post", "readers", "seo",
			},
			"newsletter": {
				"newsletter", "update", "monthly", "subscribers",
			},
			"video_script": {
				"video", "script", "scene", "narration",
			},
		},
	}
}

// RelevanceScorer 按五个加权子评分计算元素与请求的相关性。
// 仅高级装配路径使用；基础路径采用各收集器的静态默认评分。
type RelevanceScorer struct {
	config *ScoringConfig
}

// NewRelevanceScorer 创建 RelevanceScorer。
// config 为 nil 时使用 DefaultScoringConfig。
func NewRelevanceScorer(config *ScoringConfig) *RelevanceScorer {
	if config == nil {
		config = DefaultScoringConfig()
	}
	return &RelevanceScorer{config: config}
}

// Score 返回内容相对用户请求的相关性（0-1）。
//
// 五个子评分加权求和后钳制到 [0,1]：
// 关键词重叠、领域词密度、内容类型匹配、结构相似度、质量启发式。
func (s *RelevanceScorer) Score(content, userInput, contentType string, metadata map[string]interface{}) float64 {
	if content == "" {
		return 0
	}

	w := s.config.Weights
	score := w.KeywordOverlap*s.keywordOverlap(content, userInput) +
		w.DomainDensity*s.domainDensity(content, userInput) +
		w.TypeAlignment*s.typeAlignment(content, contentType) +
		w.StructureSimilarity*s.structureSimilarity(content, userInput) +
		w.Quality*s.quality(content, metadata)

	return clamp(score, 0, 1)
}

// keywordOverlap 计算内容与请求的词重叠比例。
func (s *RelevanceScorer) keywordOverlap(content, userInput string) float64 {
	queryWords := tokenize(userInput)
	if len(queryWords) == 0 {
		return 0
	}

	contentSet := wordSet(tokenize(content))
	overlap := 0
	for _, word := range queryWords {
		if _, ok := contentSet[word]; ok {
			overlap++
		}
	}

	return clamp(float64(overlap)/float64(len(queryWords)), 0, 1)
}

// domainDensity 按三档权重统计领域关键词命中，
// 同一关键词同时出现在内容和请求中时加倍计分。
func (s *RelevanceScorer) domainDensity(content, userInput string) float64 {
	contentLower := strings.ToLower(content)
	inputLower := strings.ToLower(userInput)

	tiers := []struct {
		words  []string
		weight float64
	}{
		{s.config.Domain.High, 1.0},
		{s.config.Domain.Medium, 0.6},
		{s.config.Domain.Low, 0.3},
	}

	var hits, possible float64
	for _, tier := range tiers {
		for _, kw := range tier.words {
			possible += tier.weight
			if !strings.Contains(contentLower, kw) {
				continue
			}
			weight := tier.weight
			if strings.Contains(inputLower, kw) {
				// 内容和请求同时命中，加倍
				weight *= 2
			}
			hits += weight
		}
	}

	if possible == 0 {
		return 0
	}
	return clamp(hits/possible*4, 0, 1) // 少量命中即应显著得分
}

// typeAlignment 计算内容与目标内容类型特征词的匹配度。
func (s *RelevanceScorer) typeAlignment(content, contentType string) float64 {
	keywords, ok := s.config.ContentTypes[contentType]
	if !ok || len(keywords) == 0 {
		return 0.5 // 未知类型按中性计
	}

	contentLower := strings.ToLower(content)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(contentLower, kw) {
			hits++
		}
	}

	return clamp(float64(hits)/float64(len(keywords))*2, 0, 1)
}

// structureSimilarity 用句子数和词数的相似比例近似结构相似度。
// 这是语义相似度的廉价代理，不做向量计算。
func (s *RelevanceScorer) structureSimilarity(content, userInput string) float64 {
	if userInput == "" {
		return 0
	}

	sentenceRatio := ratio(countSentences(content), countSentences(userInput))
	wordRatio := ratio(len(tokenize(content)), len(tokenize(userInput)))

	return (sentenceRatio + wordRatio) / 2
}

// quality 奖励适中长度、段落分隔、完整句末标点和高合规评分。
func (s *RelevanceScorer) quality(content string, metadata map[string]interface{}) float64 {
	score := 0.0

	wordCount := len(tokenize(content))
	if wordCount >= 50 && wordCount <= 500 {
		score += 0.4
	} else if wordCount > 0 {
		score += 0.2
	}

	if strings.Contains(content, "\n\n") {
		score += 0.2
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
		score += 0.2
	}

	if metadata != nil {
		if cs, ok := metadata["compliance_score"].(float64); ok && cs > 0.8 {
			score += 0.2
		}
	}

	return clamp(score, 0, 1)
}

// ratio 返回两个计数的相似比例（小 / 大）。
func ratio(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}

// countSentences 粗略统计句子数。
func countSentences(text string) int {
	count := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
		}
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		count = 1
	}
	return count
}

// tokenize 将文本分割为小写词元用于比较。
func tokenize(text string) []string {
	text = strings.ToLower(text)

	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if isTokenChar(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// isTokenChar 返回该字符是否应该是词元的一部分。
func isTokenChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9') ||
		r >= 0x4E00 && r <= 0x9FFF // 中文字符
}

// wordSet 把词元切片转为集合。
func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
