package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

// MemoryStore 内存存储
//
// 基于 map 的简单实现，适用于测试和轻量级场景。
type MemoryStore struct {
	messages  map[string][]Message
	documents map[string][]assembly.SessionDocument
	mu        sync.RWMutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:  make(map[string][]Message),
		documents: make(map[string][]assembly.SessionDocument),
	}
}

// AppendMessage 追加一条会话消息
func (s *MemoryStore) AppendMessage(_ context.Context, msg Message) error {
	if msg.SessionID == "" || strings.TrimSpace(msg.Content) == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Role == "" {
		msg.Role = RoleUser
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	return nil
}

// GetMessages 返回会话的全部消息，按时间升序
func (s *MemoryStore) GetMessages(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// GetConversationContext 返回会话的对话文本
func (s *MemoryStore) GetConversationContext(ctx context.Context, sessionID string) (string, error) {
	msgs, err := s.GetMessages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return FormatTranscript(msgs), nil
}

// PutDocument 存储/更新一条文档记录
func (s *MemoryStore) PutDocument(_ context.Context, sessionID string, doc assembly.SessionDocument) error {
	if sessionID == "" || doc.Title == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	docs := s.documents[sessionID]
	for i, existing := range docs {
		if existing.ID == doc.ID {
			docs[i] = doc
			return nil
		}
	}

	s.documents[sessionID] = append(docs, doc)
	return nil
}

// GetSessionDocuments 返回会话的全部文档记录
func (s *MemoryStore) GetSessionDocuments(_ context.Context, sessionID string, _ bool) ([]assembly.SessionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.documents[sessionID]
	out := make([]assembly.SessionDocument, len(docs))
	copy(out, docs)
	return out, nil
}

// DeleteSession 删除会话的全部消息与文档
func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, sessionID)
	delete(s.documents, sessionID)
	return nil
}

// Close 关闭存储（内存实现为空操作）
func (s *MemoryStore) Close() error {
	return nil
}

// 编译时接口检查
var _ Store = (*MemoryStore)(nil)
