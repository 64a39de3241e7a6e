package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/models"
)

func TestAnswerQuestion_NoChunks(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSearcher(&stubSearcher{}))

	got, err := svc.AnswerQuestion(context.Background(), "电缆的交货期是多久")
	require.NoError(t, err)
	assert.Equal(t, "抱歉，在知识库中未找到相关信息。", got.Answer)
	assert.Empty(t, got.References)
}

func TestAnswerQuestion_SearchFailureStillAnswers(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSearcher(&stubSearcher{err: errSearchDown}))

	got, err := svc.AnswerQuestion(context.Background(), "电缆的交货期是多久")
	require.NoError(t, err)
	assert.Equal(t, "抱歉，在知识库中未找到相关信息。", got.Answer)
}

func TestAnswerQuestion_NoLLM(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", "doc", "内容A"),
		textChunk("p-2", "doc", "内容B"),
		textChunk("p-3", "doc", "内容C"),
	}}}
	svc := NewKnowledgeService(KnowledgeWithSearcher(searcher))

	got, err := svc.AnswerQuestion(context.Background(), "电缆的交货期是多久")
	require.NoError(t, err)
	assert.Equal(t, "找到 3 条相关信息，请查看下方参考内容。", got.Answer)
	assert.Len(t, got.References, 3)

	assert.Equal(t, 5, searcher.options[0].Limit)
}

func TestAnswerQuestion_ReturnsAllSearchedChunks(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("_sys_auto_gen_doc_id-1-1", "doc", "内容A"),
		textChunk("_sys_auto_gen_doc_id-1-2", "doc", "内容B"),
	}}}
	chatter := &stubChatter{answer: `交货期为30天<reference data-ref="1-2"></reference>`}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithChatter(chatter),
		KnowledgeWithRetryPolicy(fastRetry()),
	)

	got, err := svc.AnswerQuestion(context.Background(), "电缆的交货期是多久")
	require.NoError(t, err)
	assert.Equal(t, `交货期为30天<reference data-ref="1-2"></reference>`, got.Answer)

	// Uncited chunks stay in the reference list alongside the cited one.
	require.Len(t, got.References, 2)
	assert.Equal(t, "_sys_auto_gen_doc_id-1-1", got.References[0].SliceID)
	assert.Equal(t, "_sys_auto_gen_doc_id-1-2", got.References[1].SliceID)
}

func TestAnswerQuestion_LLMFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", "doc", "内容A"),
	}}}
	chatter := &stubChatter{err: errSearchDown}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithChatter(chatter),
		KnowledgeWithRetryPolicy(fastRetry()),
	)

	got, err := svc.AnswerQuestion(context.Background(), "电缆的交货期是多久")
	require.NoError(t, err)
	assert.Equal(t, "找到 1 条相关信息，请查看下方参考内容。", got.Answer)
	assert.Len(t, got.References, 1)
}

func TestBuildQAPrompt_AugmentsQuestion(t *testing.T) {
	chunks := []models.Chunk{textChunk("p-1", "doc", "内容")}

	got := buildQAPrompt("电力电缆", chunks)
	assert.Contains(t, got, "电力电缆相关的规格要求有哪些")

	got = buildQAPrompt("电力电缆的技术要求是什么", chunks)
	assert.Contains(t, got, "电力电缆的技术要求是什么")
	assert.NotContains(t, got, "电力电缆的技术要求是什么相关的规格要求有哪些")
}
