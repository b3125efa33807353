package assembly_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/easyops/advisorctx-go/pkg/assembly"
	coreerrors "github.com/easyops/advisorctx-go/pkg/core/errors"
)

// mockConversationStore 返回固定对话文本的测试存储
type mockConversationStore struct {
	transcript string
	err        error
}

func (m *mockConversationStore) GetConversationContext(_ context.Context, _ string) (string, error) {
	return m.transcript, m.err
}

// mockDocumentStore 返回固定文档列表的测试存储
type mockDocumentStore struct {
	docs []assembly.SessionDocument
	err  error
}

func (m *mockDocumentStore) GetSessionDocuments(_ context.Context, _ string, _ bool) ([]assembly.SessionDocument, error) {
	return m.docs, m.err
}

func TestConversationGatherer(t *testing.T) {
	store := &mockConversationStore{transcript: "User: hello\nAssistant: hi"}
	gatherer := assembly.NewConversationGatherer(store)

	elements, err := gatherer.Gather(context.Background(), &assembly.GatherInput{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(elements))
	}
	if elements[0].Category != assembly.CategoryConversationHistory {
		t.Errorf("Category = %v, want conversation history", elements[0].Category)
	}
	if elements[0].Content != store.transcript {
		t.Error("transcript content should pass through unchanged")
	}
}

func TestConversationGatherer_EmptySession(t *testing.T) {
	gatherer := assembly.NewConversationGatherer(&mockConversationStore{transcript: "text"})

	elements, err := gatherer.Gather(context.Background(), &assembly.GatherInput{SessionID: ""})
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("got %d elements, want 0 without a session", len(elements))
	}
}

func TestComplianceGatherer(t *testing.T) {
	gatherer := assembly.NewComplianceGatherer()

	input := &assembly.GatherInput{
		ContextData: &assembly.ContextData{
			Rules: []assembly.KnowledgeItem{
				{Title: "Performance Claims", ContentText: "Never guarantee returns."},
				{Title: "", ContentText: "missing title is skipped"},
			},
			Disclaimers: []assembly.KnowledgeItem{
				{Title: "General", ContentText: "Informational purposes only."},
			},
		},
	}

	elements, err := gatherer.Gather(context.Background(), input)
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want 1 combined element", len(elements))
	}

	elem := elements[0]
	if elem.RelevanceScore != 1.0 {
		t.Errorf("compliance relevance = %v, want always 1.0", elem.RelevanceScore)
	}
	if !strings.Contains(elem.Content, "Rule: Performance Claims") {
		t.Error("rule formatting missing")
	}
	if !strings.Contains(elem.Content, "Disclaimer: General") {
		t.Error("disclaimer formatting missing")
	}
	if strings.Contains(elem.Content, "missing title is skipped") {
		t.Error("items without a title must be skipped")
	}
}

func TestDocumentGatherer_FiltersUnprocessed(t *testing.T) {
	store := &mockDocumentStore{docs: []assembly.SessionDocument{
		{ID: "d1", Title: "Done", ContentType: "pdf", WordCount: 100, ProcessingStatus: "completed", Summary: "A finished summary."},
		{ID: "d2", Title: "Pending", ProcessingStatus: "processing", Summary: "ignored"},
		{ID: "d3", Title: "NoSummary", ProcessingStatus: "completed", Summary: ""},
	}}
	gatherer := assembly.NewDocumentGatherer(store)

	elements, err := gatherer.Gather(context.Background(), &assembly.GatherInput{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want only the completed document", len(elements))
	}
	if !strings.Contains(elements[0].Content, "Document: Done (pdf, 100 words)") {
		t.Errorf("document header missing, got %q", elements[0].Content)
	}
}

func TestExampleGatherer_RankDecay(t *testing.T) {
	gatherer := assembly.NewExampleGatherer()

	input := &assembly.GatherInput{
		ContextData: &assembly.ContextData{
			Examples: []assembly.KnowledgeItem{
				{Title: "First", ContentText: "top hit", SimilarityScore: 0.9},
				{Title: "Second", ContentText: "second hit", SimilarityScore: 0.8},
			},
			SearchResults: []string{"raw search text"},
		},
	}

	elements, err := gatherer.Gather(context.Background(), input)
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(elements))
	}

	if elements[0].PriorityScore <= elements[1].PriorityScore {
		t.Error("priority should decay with rank")
	}
	if elements[1].PriorityScore <= elements[2].PriorityScore {
		t.Error("raw search results continue the rank decay")
	}
	if elements[0].RelevanceScore != 0.9 {
		t.Errorf("relevance = %v, want similarity score 0.9", elements[0].RelevanceScore)
	}
}

func TestExampleGatherer_TruncatesOversizedRawResults(t *testing.T) {
	gatherer := assembly.NewExampleGatherer()

	input := &assembly.GatherInput{
		ContextData: &assembly.ContextData{
			SearchResults: []string{strings.Repeat("A", 200)},
		},
		Config: assembly.NewConfig(assembly.WithSearchResultMaxChars(100)),
	}

	elements, err := gatherer.Gather(context.Background(), input)
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(elements))
	}

	content := elements[0].Content
	if !strings.HasSuffix(content, "[Search result truncated]") {
		t.Error("over-length raw result should carry a truncation note")
	}
	if len(content) > 100+len("\n[Search result truncated]") {
		t.Errorf("content length %d exceeds the configured cap", len(content))
	}
	if v, _ := elements[0].GetMetadata("truncated"); v != true {
		t.Error("truncated metadata flag missing")
	}
}

func TestExampleGatherer_ShortRawResultNotMarked(t *testing.T) {
	gatherer := assembly.NewExampleGatherer()

	elements, err := gatherer.Gather(context.Background(), &assembly.GatherInput{
		ContextData: &assembly.ContextData{SearchResults: []string{"short hit"}},
	})
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(elements))
	}
	if v, _ := elements[0].GetMetadata("truncated"); v != false {
		t.Error("short raw result must not be flagged as truncated")
	}
}

// blockingConversationStore 阻塞到上下文取消的测试存储
type blockingConversationStore struct{}

func (b *blockingConversationStore) GetConversationContext(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestConversationGatherer_CollaboratorTimeout(t *testing.T) {
	gatherer := assembly.NewConversationGatherer(&blockingConversationStore{})

	input := &assembly.GatherInput{
		SessionID: "s1",
		Config:    assembly.NewConfig(assembly.WithCollaboratorTimeout(10 * time.Millisecond)),
	}

	_, err := gatherer.Gather(context.Background(), input)
	if !errors.Is(err, coreerrors.ErrTimeout) {
		t.Errorf("err = %v, want wrapped collaborator timeout", err)
	}
}

func TestTranscriptGatherer_Truncation(t *testing.T) {
	gatherer := assembly.NewTranscriptGatherer()

	long := strings.Repeat("transcript words ", 1000)
	input := &assembly.GatherInput{
		Transcript: &assembly.TranscriptContext{
			Transcript: long,
			Metadata:   assembly.TranscriptMetadata{Title: "Market Update"},
		},
		Config: assembly.DefaultConfig(),
	}

	elements, err := gatherer.Gather(context.Background(), input)
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}
	if len(elements) != 1 {
		t.Fatalf("got %d elements, want 1", len(elements))
	}

	content := elements[0].Content
	if !strings.HasPrefix(content, "Video: Market Update") {
		t.Error("video title header missing")
	}
	if !strings.Contains(content, "[Transcript truncated]") {
		t.Error("over-length transcript should carry a truncation note")
	}
	if len(content) > assembly.DefaultTranscriptMaxChars+100 {
		t.Errorf("content length %d exceeds transcript cap", len(content))
	}
}

// failingGatherer 总是失败的收集器
type failingGatherer struct{}

func (f *failingGatherer) Gather(_ context.Context, _ *assembly.GatherInput) ([]*assembly.ContextElement, error) {
	return nil, errors.New("collaborator unavailable")
}

// panickingGatherer 总是 panic 的收集器
type panickingGatherer struct{}

func (p *panickingGatherer) Gather(_ context.Context, _ *assembly.GatherInput) ([]*assembly.ContextElement, error) {
	panic("collaborator exploded")
}

func TestCompositeGatherer_SurvivesFailures(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		composite := assembly.NewCompositeGatherer([]assembly.Gatherer{
			&failingGatherer{},
			&panickingGatherer{},
			assembly.NewConversationGatherer(&mockConversationStore{transcript: "User: hi"}),
		}, parallel, nil)

		elements, err := composite.Gather(context.Background(), &assembly.GatherInput{SessionID: "s1"})
		if err != nil {
			t.Fatalf("parallel=%v: composite must never fail, got %v", parallel, err)
		}
		if len(elements) != 1 {
			t.Errorf("parallel=%v: got %d elements, want 1 from the healthy gatherer", parallel, len(elements))
		}
	}
}
