package store

import (
	"context"
	"time"

	"github.com/easyops/advisorctx-go/pkg/assembly"
	"github.com/easyops/advisorctx-go/pkg/otel"
)

// InstrumentedStore 带指标上报的存储装饰器
//
// 包装任意 Store 实现，记录每次操作的次数、耗时和错误。
type InstrumentedStore struct {
	inner   Store
	kind    string
	metrics otel.Metrics
}

// Instrument 包装存储并上报指标
func Instrument(inner Store, kind string, metrics otel.Metrics) *InstrumentedStore {
	if metrics == nil {
		metrics = otel.NewNoopMetrics()
	}
	return &InstrumentedStore{inner: inner, kind: kind, metrics: metrics}
}

// record 上报单次操作的指标
func (s *InstrumentedStore) record(ctx context.Context, op string, start time.Time, err error) {
	attrs := []otel.Attr{
		otel.NewAttr(otel.AttrStoreKind, s.kind),
		otel.NewAttr(otel.AttrStoreOperation, op),
	}
	s.metrics.Counter(otel.MetricStoreOperations).Add(ctx, 1, attrs...)
	s.metrics.Histogram(otel.MetricStoreOperationTime).Record(ctx,
		float64(time.Since(start).Milliseconds()), attrs...)
	if err != nil {
		s.metrics.Counter(otel.MetricStoreErrors).Add(ctx, 1, attrs...)
	}
}

// AppendMessage 追加一条会话消息
func (s *InstrumentedStore) AppendMessage(ctx context.Context, msg Message) error {
	start := time.Now()
	err := s.inner.AppendMessage(ctx, msg)
	s.record(ctx, "append_message", start, err)
	return err
}

// GetMessages 返回会话的全部消息
func (s *InstrumentedStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	start := time.Now()
	msgs, err := s.inner.GetMessages(ctx, sessionID)
	s.record(ctx, "get_messages", start, err)
	return msgs, err
}

// GetConversationContext 返回会话的对话文本
func (s *InstrumentedStore) GetConversationContext(ctx context.Context, sessionID string) (string, error) {
	start := time.Now()
	transcript, err := s.inner.GetConversationContext(ctx, sessionID)
	s.record(ctx, "get_conversation_context", start, err)
	return transcript, err
}

// PutDocument 存储/更新一条文档记录
func (s *InstrumentedStore) PutDocument(ctx context.Context, sessionID string, doc assembly.SessionDocument) error {
	start := time.Now()
	err := s.inner.PutDocument(ctx, sessionID, doc)
	s.record(ctx, "put_document", start, err)
	return err
}

// GetSessionDocuments 返回会话的全部文档记录
func (s *InstrumentedStore) GetSessionDocuments(ctx context.Context, sessionID string, completedOnly bool) ([]assembly.SessionDocument, error) {
	start := time.Now()
	docs, err := s.inner.GetSessionDocuments(ctx, sessionID, completedOnly)
	s.record(ctx, "get_session_documents", start, err)
	return docs, err
}

// DeleteSession 删除会话的全部消息与文档
func (s *InstrumentedStore) DeleteSession(ctx context.Context, sessionID string) error {
	start := time.Now()
	err := s.inner.DeleteSession(ctx, sessionID)
	s.record(ctx, "delete_session", start, err)
	return err
}

// Close 关闭底层存储
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

// 编译时接口检查
var _ Store = (*InstrumentedStore)(nil)
