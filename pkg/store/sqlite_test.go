package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/easyops/advisorctx-go/pkg/assembly"
	"github.com/easyops/advisorctx-go/pkg/store"
)

func TestNewSQLiteStore_UnreachablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "nested", "advisorctx.db")

	st, err := store.NewSQLiteStore(path)
	if err == nil {
		st.Close()
		t.Fatal("expected error for a path inside a nonexistent directory")
	}
	if !errors.Is(err, store.ErrConnectionFailed) {
		t.Errorf("err = %v, want ErrConnectionFailed", err)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "advisorctx.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	if err := st.AppendMessage(ctx, store.Message{
		SessionID: "s1", Role: store.RoleUser, Content: "hello",
	}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if err := st.AppendMessage(ctx, store.Message{
		SessionID: "s1", Role: store.RoleAssistant, Content: "hi there",
	}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	transcript, err := st.GetConversationContext(ctx, "s1")
	if err != nil {
		t.Fatalf("GetConversationContext: %v", err)
	}
	if want := "User: hello\nAssistant: hi there"; transcript != want {
		t.Errorf("transcript = %q, want %q", transcript, want)
	}

	if err := st.PutDocument(ctx, "s1", assembly.SessionDocument{
		ID: "d1", Title: "Limits", ContentType: "pdf", WordCount: 500,
		ProcessingStatus: "completed", Summary: "Contribution limits summary.",
	}); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}

	docs, err := st.GetSessionDocuments(ctx, "s1", false)
	if err != nil {
		t.Fatalf("GetSessionDocuments: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Limits" {
		t.Errorf("docs = %+v, want the stored document", docs)
	}

	if err := st.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	msgs, err := st.GetMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after DeleteSession, want 0", len(msgs))
	}
}
