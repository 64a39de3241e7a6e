package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/kb"
	"procurement-backend/llm"
	"procurement-backend/models"
)

// stubSearcher records every search call and replies from a script, one
// result set per call. After the script runs out it keeps returning the
// last entry.
type stubSearcher struct {
	queries []string
	options []kb.SearchOptions
	results [][]models.Chunk
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string, opts kb.SearchOptions) ([]models.Chunk, error) {
	call := len(s.queries)
	s.queries = append(s.queries, query)
	s.options = append(s.options, opts)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) == 0 {
		return nil, nil
	}
	if call >= len(s.results) {
		call = len(s.results) - 1
	}
	return s.results[call], nil
}

// stubChatter replies with a fixed answer, or fails. When answers is set it
// replies from the script instead, one answer per call, repeating the last
// entry once the script runs out.
type stubChatter struct {
	prompts []string
	systems []string
	answer  string
	answers []string
	err     error
}

func (c *stubChatter) Chat(ctx context.Context, system, user string, opts llm.ChatOptions) (string, error) {
	call := len(c.prompts)
	c.systems = append(c.systems, system)
	c.prompts = append(c.prompts, user)
	if c.err != nil {
		return "", c.err
	}
	if len(c.answers) > 0 {
		if call >= len(c.answers) {
			call = len(c.answers) - 1
		}
		return c.answers[call], nil
	}
	return c.answer, nil
}

// fastRetry keeps test failures from sleeping.
func fastRetry() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond, TimeoutOnly: true}
}

func textChunk(sliceID, docID, content string) models.Chunk {
	return models.Chunk{SliceID: sliceID, DocID: docID, Content: content}
}

func TestRefreshImageLink_Found(t *testing.T) {
	link := "https://example.com/signed.png"
	searcher := &stubSearcher{results: [][]models.Chunk{{
		{SliceID: "_sys_auto_gen_doc_id-42-3", DocID: "doc", ImageURL: &link},
	}}}
	svc := NewKnowledgeService(KnowledgeWithSearcher(searcher))

	got, err := svc.RefreshImageLink(context.Background(), "42-3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, link, *got)

	require.Len(t, searcher.options, 1)
	assert.Equal(t, 1, searcher.options[0].Limit)
	assert.Equal(t, "42-3", searcher.queries[0])
}

func TestRefreshImageLink_NoMatch(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("other-slice", "doc", "无图片"),
	}}}
	svc := NewKnowledgeService(KnowledgeWithSearcher(searcher))

	got, err := svc.RefreshImageLink(context.Background(), "42-3")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRefreshImageLink_NoSearcher(t *testing.T) {
	svc := NewKnowledgeService()
	_, err := svc.RefreshImageLink(context.Background(), "42-3")
	assert.ErrorIs(t, err, ErrSearcherNotSet)
}

func TestSupplierDocName(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSupplierDocs("group-doc", "oilfield-doc"))

	assert.Equal(t, "集团定商采购", svc.supplierDocName("group-doc"))
	assert.Equal(t, "油田定商采购", svc.supplierDocName("oilfield-doc"))
	assert.Equal(t, "未知文档", svc.supplierDocName("whatever"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "额定电压", truncateRunes("额定电压", 10))
	assert.Equal(t, "额定", truncateRunes("额定电压", 2))
	assert.Equal(t, "", truncateRunes("abc", 0))
}

var errSearchDown = errors.New("search backend down")
