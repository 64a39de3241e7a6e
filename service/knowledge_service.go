package service

import (
	"context"
	"errors"
	"log"

	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/models"
)

// Searcher is the knowledge base dependency.
type Searcher interface {
	Search(ctx context.Context, query string, opts kb.SearchOptions) ([]models.Chunk, error)
}

// Chatter is the LLM dependency.
type Chatter interface {
	Chat(ctx context.Context, system, user string, opts llm.ChatOptions) (string, error)
}

// KnowledgeService orchestrates knowledge base search and LLM extraction:
// spec summaries, supplier extraction, Q&A, and certificate personnel
// lookups. A nil Chatter is valid; every operation degrades to returning
// raw chunks with a sentinel message instead of failing.
type KnowledgeService struct {
	search Searcher
	chat   Chatter
	retry  llm.RetryPolicy

	groupDocID       string
	oilfieldDocID    string
	certificateDocID string
}

// KnowledgeServiceOption is a functional option for KnowledgeService.
type KnowledgeServiceOption func(*KnowledgeService)

// KnowledgeWithSearcher sets the knowledge base client.
func KnowledgeWithSearcher(s Searcher) KnowledgeServiceOption {
	return func(svc *KnowledgeService) {
		svc.search = s
	}
}

// KnowledgeWithChatter sets the LLM client. Pass nil to run without a
// model; operations then return raw chunks with sentinel summaries.
func KnowledgeWithChatter(c Chatter) KnowledgeServiceOption {
	return func(svc *KnowledgeService) {
		svc.chat = c
	}
}

// KnowledgeWithRetryPolicy overrides the LLM retry policy.
func KnowledgeWithRetryPolicy(p llm.RetryPolicy) KnowledgeServiceOption {
	return func(svc *KnowledgeService) {
		svc.retry = p
	}
}

// KnowledgeWithSupplierDocs sets the two supplier register documents.
func KnowledgeWithSupplierDocs(groupDocID, oilfieldDocID string) KnowledgeServiceOption {
	return func(svc *KnowledgeService) {
		svc.groupDocID = groupDocID
		svc.oilfieldDocID = oilfieldDocID
	}
}

// KnowledgeWithCertificateDoc sets the certificate register document.
func KnowledgeWithCertificateDoc(docID string) KnowledgeServiceOption {
	return func(svc *KnowledgeService) {
		svc.certificateDocID = docID
	}
}

// NewKnowledgeService creates a knowledge service.
func NewKnowledgeService(opts ...KnowledgeServiceOption) *KnowledgeService {
	svc := &KnowledgeService{
		retry: llm.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

var (
	ErrSearcherNotSet = errors.New("knowledge base client not set")
)

func (s *KnowledgeService) hasLLM() bool {
	return s.chat != nil
}

func (s *KnowledgeService) supplierDocIDs() []string {
	ids := make([]string, 0, 2)
	if s.groupDocID != "" {
		ids = append(ids, s.groupDocID)
	}
	if s.oilfieldDocID != "" {
		ids = append(ids, s.oilfieldDocID)
	}
	return ids
}

// supplierDocName maps the two register documents to their display names.
func (s *KnowledgeService) supplierDocName(docID string) string {
	switch docID {
	case s.groupDocID:
		return "集团定商采购"
	case s.oilfieldDocID:
		return "油田定商采购"
	default:
		return "未知文档"
	}
}

// RefreshImageLink looks a chunk up by slice id and returns a fresh signed
// image link, or nil when the chunk has no image or cannot be found.
// Attachment links expire, so the frontend calls this lazily.
func (s *KnowledgeService) RefreshImageLink(ctx context.Context, sliceID string) (*string, error) {
	if s.search == nil {
		return nil, ErrSearcherNotSet
	}

	chunks, err := s.search.Search(ctx, sliceID, kb.SearchOptions{Limit: 1})
	if err != nil {
		log.Printf("[知识库] 刷新图片链接失败: %v", err)
		return nil, err
	}
	for _, chunk := range chunks {
		if kb.MatchSliceID(chunk.SliceID, sliceID) && chunk.ImageURL != nil && *chunk.ImageURL != "" {
			return chunk.ImageURL, nil
		}
	}
	return nil, nil
}

// truncateRunes cuts s to at most n runes. The upstream limits are
// character counts, and byte slicing would split multibyte characters.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func strptr(s string) *string {
	return &s
}
