package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/models"
)

func TestSearchSpecs_BuildsQueryAndExcludesSupplierDocs(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", "doc-spec", "额定电压 10kV"),
	}}}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithSupplierDocs("group-doc", "oilfield-doc"),
	)

	features := "1.额定电压:10kV"
	chunks, err := svc.SearchSpecs(context.Background(), "电力电缆", &features)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "电力电缆 1.额定电压:10kV 规格 技术参数 配置要求", searcher.queries[0])

	opts := searcher.options[0]
	assert.Equal(t, 4, opts.Limit)
	assert.Equal(t, []string{"group-doc", "oilfield-doc"}, opts.ExcludeDocIDs)
	require.NotNil(t, opts.DocFilter)
	assert.Equal(t, "must_not", opts.DocFilter.Op)
	assert.Equal(t, "doc_id", opts.DocFilter.Field)
}

func TestSummarizeSpecs_NoChunksNoFeatures(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSearcher(&stubSearcher{}))

	got := svc.SummarizeSpecs(context.Background(), "电力电缆", nil)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "没有找到规格参数", *got.Summary)
	assert.Empty(t, got.References)
}

func TestSummarizeSpecs_NoChunksWithFeaturesReformats(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSearcher(&stubSearcher{}))

	features := "1.名称:电力电缆 2.规格:YJV-10kV 3.数量:500米"
	got := svc.SummarizeSpecs(context.Background(), "电力电缆", &features)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "## 原始规格参数\n\n1.名称:电力电缆 \n2.规格:YJV-10kV \n3.数量:500米", *got.Summary)
	assert.Empty(t, got.References)
}

func TestSummarizeSpecs_MultilineFeaturesKeptAsIs(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSearcher(&stubSearcher{}))

	features := "1.名称:电力电缆\n2.规格:YJV-10kV"
	got := svc.SummarizeSpecs(context.Background(), "电力电缆", &features)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "## 原始规格参数\n\n1.名称:电力电缆\n2.规格:YJV-10kV", *got.Summary)
}

func TestSummarizeSpecs_NoLLMReturnsRawChunks(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", "doc", "规格A"),
		textChunk("p-2", "doc", "规格B"),
	}}}
	svc := NewKnowledgeService(KnowledgeWithSearcher(searcher))

	got := svc.SummarizeSpecs(context.Background(), "电力电缆", nil)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "找到 2 条规格信息，请查看下方参考内容。", *got.Summary)
	assert.Len(t, got.References, 2)
}

func TestSummarizeSpecs_LLMSummary(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", "doc", "额定电压 10kV"),
	}}}
	chatter := &stubChatter{answer: "规格总结内容"}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithChatter(chatter),
		KnowledgeWithRetryPolicy(fastRetry()),
	)

	features := "1.额定电压:10kV"
	got := svc.SummarizeSpecs(context.Background(), "电力电缆", &features)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "规格总结内容", *got.Summary)
	assert.Len(t, got.References, 1)

	// Search runs on the name alone; features go to the prompt only.
	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "电力电缆 规格 技术参数 配置要求", searcher.queries[0])

	require.Len(t, chatter.prompts, 1)
	assert.Contains(t, chatter.prompts[0], "【原始需求规格】")
	assert.Contains(t, chatter.prompts[0], "【知识库参考资料 1】")
	assert.Contains(t, chatter.prompts[0], "point_id: p-1")
	assert.Contains(t, chatter.systems[0], "采购专家")
}

func TestSummarizeSpecs_LLMFailureDegrades(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", "doc", "规格A"),
	}}}
	chatter := &stubChatter{err: errSearchDown}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithChatter(chatter),
		KnowledgeWithRetryPolicy(fastRetry()),
	)

	got := svc.SummarizeSpecs(context.Background(), "电力电缆", nil)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "总结失败，找到 1 条规格信息，请查看下方参考内容。", *got.Summary)
	assert.Len(t, got.References, 1)
}

func TestSummarizeSpecs_SearchFailureFallsBackToFeatures(t *testing.T) {
	svc := NewKnowledgeService(KnowledgeWithSearcher(&stubSearcher{err: errSearchDown}))

	features := "额定电压10kV"
	got := svc.SummarizeSpecs(context.Background(), "电力电缆", &features)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "## 原始规格参数\n\n额定电压10kV", *got.Summary)
}

func TestReformatInlineSpecs(t *testing.T) {
	assert.Equal(t, "1.名称:A \n2.规格:B", reformatInlineSpecs("1.名称:A 2.规格:B"))
	assert.Equal(t, "1.名称:A\n2.规格:B", reformatInlineSpecs("1.名称:A\n2.规格:B"))
	assert.Equal(t, "无编号规格", reformatInlineSpecs("  无编号规格  "))
}
