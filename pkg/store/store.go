// Package store provides conversation and document storage backends
// for the context assembly engine.
//
// 提供内存和 SQLite 两种实现，二者都同时满足
// assembly.ConversationStore 和 assembly.DocumentStore。
package store

import (
	"context"
	"time"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

// Message 会话消息记录
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// 消息角色
const (
	RoleUser      = "User"
	RoleAssistant = "Assistant"
)

// Store 会话与文档的组合存储接口
//
// 读侧满足组装引擎的两个协作者接口，写侧供外层应用
// 落地消息与文档。
type Store interface {
	assembly.ConversationStore
	assembly.DocumentStore

	// AppendMessage 追加一条会话消息
	AppendMessage(ctx context.Context, msg Message) error

	// GetMessages 返回会话的全部消息，按时间升序
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// PutDocument 存储/更新一条文档记录
	PutDocument(ctx context.Context, sessionID string, doc assembly.SessionDocument) error

	// DeleteSession 删除会话的全部消息与文档
	DeleteSession(ctx context.Context, sessionID string) error

	// Close 关闭连接
	Close() error
}

// FormatTranscript 把消息列表渲染为对话文本
//
// 每条消息渲染为 "Role: content" 一行，轮次结构在后续的
// 对话感知压缩里保持可解析。
func FormatTranscript(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	transcript := ""
	for i, msg := range messages {
		if i > 0 {
			transcript += "\n"
		}
		transcript += msg.Role + ": " + msg.Content
	}
	return transcript
}
