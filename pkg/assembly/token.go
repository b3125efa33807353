package assembly

import (
	"crypto/md5"
	"encoding/hex"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken 字符估算使用的平均每 Token 字符数。
// 这是英文文本的合理估计，压缩策略用它做粗略换算。
const CharsPerToken = 4

// DefaultCacheCapacity Token 计数缓存的默认容量。
const DefaultCacheCapacity = 1000

// TokenCounter 定义 Token 计数接口。
// 对相同输入必须返回确定的结果。
type TokenCounter interface {
	// Count 返回给定文本的 Token 数量，空文本返回 0。
	Count(text string) int
}

// TokensFromChars 按字符数粗略换算 Token 数。
func TokensFromChars(chars int) int {
	return chars / CharsPerToken
}

// CharsFromTokens 按 Token 数粗略换算字符数。
func CharsFromTokens(tokens int) int {
	return tokens * CharsPerToken
}

// TiktokenCounter 使用 tiktoken 实现精确的子词 Token 计数。
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// TiktokenOption 配置 TiktokenCounter。
type TiktokenOption func(*TiktokenCounter)

// WithModel 设置 Token 编码使用的模型。
// 支持的模型：gpt-4、gpt-4o、gpt-3.5-turbo 等。
func WithModel(model string) TiktokenOption {
	return func(c *TiktokenCounter) {
		c.model = model
	}
}

// NewTiktokenCounter 创建新的 TiktokenCounter。
// 默认使用 cl100k_base 编码（GPT-4 系列使用）。
func NewTiktokenCounter(opts ...TiktokenOption) (*TiktokenCounter, error) {
	c := &TiktokenCounter{
		model: "gpt-4o",
	}

	for _, opt := range opts {
		opt(c)
	}

	// 尝试获取模型对应的编码
	encoding, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		// 降级到 cl100k_base 编码
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encoding = encoding
	return c, nil
}

// Count 返回给定文本的 Token 数量。
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding == nil {
		return len(text) / CharsPerToken
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimatedCounter 使用字符估算实现 Token 计数。
// 这是当 tiktoken 不可用时的降级方案。
type EstimatedCounter struct {
	// CharsPerToken 每个 Token 的平均字符数，默认 4。
	CharsPerToken float64
}

// NewEstimatedCounter 创建新的 EstimatedCounter。
func NewEstimatedCounter() *EstimatedCounter {
	return &EstimatedCounter{
		CharsPerToken: CharsPerToken,
	}
}

// Count 返回估算的 Token 数量。
func (c *EstimatedCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	ratio := c.CharsPerToken
	if ratio <= 0 {
		ratio = CharsPerToken
	}
	return int(float64(len(text)) / ratio)
}

// CacheStats 缓存统计。
type CacheStats struct {
	// Hits 命中次数。
	Hits int64
	// Misses 未命中次数。
	Misses int64
	// Entries 当前条目数。
	Entries int
	// Capacity 容量上限。
	Capacity int
}

// HitRate 返回命中率（0-1），无访问时为 0。
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CachingCounter 为底层计数器增加按内容哈希键控的有界缓存。
//
// 缓存以 MD5 摘要为键，容量超限后按插入顺序淘汰（FIFO）。
// 读写加锁，Gatherer 并发收集时可安全共享。
type CachingCounter struct {
	inner    TokenCounter
	capacity int

	mu     sync.Mutex
	cache  map[string]int
	order  []string
	hits   int64
	misses int64
}

// NewCachingCounter 用给定容量包装底层计数器。
// capacity <= 0 时使用 DefaultCacheCapacity。
func NewCachingCounter(inner TokenCounter, capacity int) *CachingCounter {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &CachingCounter{
		inner:    inner,
		capacity: capacity,
		cache:    make(map[string]int, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Count 返回给定文本的 Token 数量，重复调用走缓存。
// 空文本返回 0 且不建立缓存条目。
func (c *CachingCounter) Count(text string) int {
	if text == "" {
		return 0
	}

	key := contentKey(text)

	c.mu.Lock()
	if count, ok := c.cache[key]; ok {
		c.hits++
		c.mu.Unlock()
		return count
	}
	c.misses++
	c.mu.Unlock()

	// 计数放在锁外，精确路径可能较慢
	count := c.inner.Count(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[key]; !ok {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.cache, oldest)
		}
		c.cache[key] = count
		c.order = append(c.order, key)
	}

	return count
}

// Stats 返回当前缓存统计。
func (c *CachingCounter) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		Entries:  len(c.cache),
		Capacity: c.capacity,
	}
}

// contentKey 返回文本的 MD5 摘要键。
func contentKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

var (
	defaultCounterOnce sync.Once
	defaultCounter     TokenCounter
)

// newBaseCounter 返回未缓存的基础计数器：
// 优先使用 TiktokenCounter，不可用则降级到 EstimatedCounter。
func newBaseCounter() TokenCounter {
	if counter, err := NewTiktokenCounter(); err == nil {
		return counter
	}
	return NewEstimatedCounter()
}

// DefaultTokenCounter 返回进程级共享的 Token 计数器：
// 基础计数器包装默认容量的有界缓存。
func DefaultTokenCounter() TokenCounter {
	defaultCounterOnce.Do(func() {
		defaultCounter = NewCachingCounter(newBaseCounter(), DefaultCacheCapacity)
	})
	return defaultCounter
}

// 编译时接口检查
var _ TokenCounter = (*TiktokenCounter)(nil)
var _ TokenCounter = (*EstimatedCounter)(nil)
var _ TokenCounter = (*CachingCounter)(nil)
