package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/easyops/advisorctx-go/pkg/assembly"
)

// SQLiteStore SQLite 存储
//
// 基于 SQLite 的持久化实现，适用于生产环境。
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore 创建 SQLite 存储
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &SQLiteStore{db: db}

	// 初始化表结构
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return store, nil
}

// initSchema 初始化表结构
func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content_type TEXT,
		word_count INTEGER,
		processing_status TEXT,
		summary TEXT,
		metadata TEXT,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_session ON documents(session_id);
	`

	_, err := s.db.Exec(query)
	return err
}

// AppendMessage 追加一条会话消息
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg Message) error {
	if msg.SessionID == "" || strings.TrimSpace(msg.Content) == "" {
		return ErrInvalidInput
	}

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Role == "" {
		msg.Role = RoleUser
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := `INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.SessionID, msg.Role, msg.Content, msg.CreatedAt.UnixMilli())
	return err
}

// GetMessages 返回会话的全部消息，按时间升序
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	query := `SELECT id, session_id, role, content, created_at FROM messages
	WHERE session_id = ? ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.CreatedAt = time.UnixMilli(createdAt)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// GetConversationContext 返回会话的对话文本
func (s *SQLiteStore) GetConversationContext(ctx context.Context, sessionID string) (string, error) {
	messages, err := s.GetMessages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return FormatTranscript(messages), nil
}

// PutDocument 存储/更新一条文档记录
func (s *SQLiteStore) PutDocument(ctx context.Context, sessionID string, doc assembly.SessionDocument) error {
	if sessionID == "" || doc.Title == "" {
		return ErrInvalidInput
	}

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
	INSERT INTO documents (id, session_id, title, content_type, word_count, processing_status, summary, metadata, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, id) DO UPDATE SET
		title = excluded.title,
		content_type = excluded.content_type,
		word_count = excluded.word_count,
		processing_status = excluded.processing_status,
		summary = excluded.summary,
		metadata = excluded.metadata
	`

	_, err = s.db.ExecContext(ctx, query,
		doc.ID, sessionID, doc.Title, doc.ContentType, doc.WordCount,
		doc.ProcessingStatus, doc.Summary, string(metadata), time.Now().UnixMilli())
	return err
}

// GetSessionDocuments 返回会话的全部文档记录
func (s *SQLiteStore) GetSessionDocuments(ctx context.Context, sessionID string, _ bool) ([]assembly.SessionDocument, error) {
	query := `SELECT id, title, content_type, word_count, processing_status, summary, metadata
	FROM documents WHERE session_id = ? ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []assembly.SessionDocument
	for rows.Next() {
		var doc assembly.SessionDocument
		var contentType, status, summary, metadataStr sql.NullString
		var wordCount sql.NullInt64

		if err := rows.Scan(&doc.ID, &doc.Title, &contentType, &wordCount, &status, &summary, &metadataStr); err != nil {
			return nil, err
		}

		doc.ContentType = contentType.String
		doc.WordCount = int(wordCount.Int64)
		doc.ProcessingStatus = status.String
		doc.Summary = summary.String

		if metadataStr.String != "" {
			if err := json.Unmarshal([]byte(metadataStr.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// DeleteSession 删除会话的全部消息与文档
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, sessionID)
	return err
}

// Close 关闭数据库连接
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// 编译时接口检查
var _ Store = (*SQLiteStore)(nil)
