package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/models"
)

const testCertDocID = "_sys_auto_gen_doc_id-17526703582802695253"

func TestSearchCertificatePersonnel_ScopedSearch(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk(testCertDocID+"-1", testCertDocID, "张三 工程部 一级建造师"),
	}}}
	chatter := &stubChatter{answer: `{"personnel_list": [
		{"name": "张三", "department": "工程部", "certificate_name": "一级建造师注册证书",
		 "issue_date": "2024-01-01", "expiry_date": "2027-01-01", "slice_id": "` + testCertDocID + `-1"}
	]}`}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithChatter(chatter),
		KnowledgeWithCertificateDoc(testCertDocID),
		KnowledgeWithRetryPolicy(fastRetry()),
	)

	got, err := svc.SearchCertificatePersonnel(context.Background(), "需要一级建造师")
	require.NoError(t, err)
	assert.Equal(t, "需要一级建造师", got.Question)
	require.Len(t, got.PersonnelList, 1)

	person := got.PersonnelList[0]
	require.NotNil(t, person.Name)
	assert.Equal(t, "张三", *person.Name)
	require.NotNil(t, person.Department)
	assert.Equal(t, "工程部", *person.Department)
	assert.Equal(t, "张三 工程部 一级建造师", person.Content)
	require.NotNil(t, person.DocID)
	assert.Equal(t, testCertDocID, *person.DocID)

	require.Len(t, searcher.options, 1)
	assert.Equal(t, 50, searcher.options[0].Limit)
	require.NotNil(t, searcher.options[0].DocFilter)
	assert.Equal(t, "must", searcher.options[0].DocFilter.Op)
	assert.Equal(t, []string{testCertDocID}, searcher.options[0].DocFilter.Conds)
}

func TestSearchCertificatePersonnel_UnscopedRetryFiltersByDoc(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{
		{},
		{
			textChunk("p-1", testCertDocID, "李四 质检部"),
			textChunk("p-2", "some-other-doc", "无关内容"),
		},
	}}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithCertificateDoc(testCertDocID),
	)

	got, err := svc.SearchCertificatePersonnel(context.Background(), "需要质检员")
	require.NoError(t, err)
	require.Len(t, searcher.queries, 2)
	assert.Nil(t, searcher.options[1].DocFilter)

	require.Len(t, got.References, 1)
	assert.Equal(t, "p-1", got.References[0].SliceID)
}

func TestSearchCertificatePersonnel_NoChunks(t *testing.T) {
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(&stubSearcher{}),
		KnowledgeWithCertificateDoc(testCertDocID),
	)

	got, err := svc.SearchCertificatePersonnel(context.Background(), "需要电工")
	require.NoError(t, err)
	assert.Empty(t, got.PersonnelList)
	assert.Empty(t, got.References)
}

func TestSearchCertificatePersonnel_NoLLMReturnsRawChunks(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", testCertDocID, "张三 一级建造师"),
		textChunk("p-2", testCertDocID, "李四 二级建造师"),
	}}}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithCertificateDoc(testCertDocID),
	)

	got, err := svc.SearchCertificatePersonnel(context.Background(), "需要建造师")
	require.NoError(t, err)
	require.Len(t, got.PersonnelList, 2)
	assert.Equal(t, "张三 一级建造师", got.PersonnelList[0].Content)
	assert.Nil(t, got.PersonnelList[0].Name)
	assert.Len(t, got.References, 2)
}

func TestSearchCertificatePersonnel_MalformedAnswerYieldsEmptyList(t *testing.T) {
	searcher := &stubSearcher{results: [][]models.Chunk{{
		textChunk("p-1", testCertDocID, "张三"),
	}}}
	chatter := &stubChatter{answer: "抱歉，我无法按要求返回JSON。"}
	svc := NewKnowledgeService(
		KnowledgeWithSearcher(searcher),
		KnowledgeWithChatter(chatter),
		KnowledgeWithCertificateDoc(testCertDocID),
		KnowledgeWithRetryPolicy(fastRetry()),
	)

	got, err := svc.SearchCertificatePersonnel(context.Background(), "需要电工")
	require.NoError(t, err)
	assert.Empty(t, got.PersonnelList)
	assert.Len(t, got.References, 1)
}

func TestParsePersonnelExtractions_Formats(t *testing.T) {
	fenced := "以下是结果：\n```json\n{\"personnel_list\": [{\"name\": \"张三\"}]}\n```"
	got := parsePersonnelExtractions(fenced)
	require.Len(t, got, 1)
	assert.Equal(t, "张三", got[0].Name)

	bare := `根据资料，{"personnel_list": [{"name": "李四"}]} 以上。`
	got = parsePersonnelExtractions(bare)
	require.Len(t, got, 1)
	assert.Equal(t, "李四", got[0].Name)

	whole := `{"personnel_list": [{"name": "王五"}, {"name": "赵六"}]}`
	got = parsePersonnelExtractions(whole)
	assert.Len(t, got, 2)

	assert.Empty(t, parsePersonnelExtractions("完全不是JSON"))
}

func TestResolveRelativeExpiry(t *testing.T) {
	assert.Equal(t, "2023-01-01", resolveRelativeExpiry("3年", "2020-01-01"))
	assert.Equal(t, "2026-05-02", resolveRelativeExpiry("5 年", "2021/05/02"))
	assert.Equal(t, "2025-03-15", resolveRelativeExpiry("1年", "2024年3月15日"))
	// Absolute dates pass through untouched.
	assert.Equal(t, "2027-01-01", resolveRelativeExpiry("2027-01-01", "2024-01-01"))
	// Unparseable issue date keeps the relative value.
	assert.Equal(t, "3年", resolveRelativeExpiry("3年", "未知"))
	assert.Equal(t, "", resolveRelativeExpiry("", "2024-01-01"))
}

func TestBuildPersonnelPrompt(t *testing.T) {
	chunks := []models.Chunk{textChunk("p-1", testCertDocID, "张三 工程部")}

	got := buildPersonnelPrompt("需要一级建造师", chunks)
	assert.Contains(t, got, "需要一级建造师")
	assert.Contains(t, got, "point_id: p-1")
	assert.Contains(t, got, "personnel_list")
	assert.Contains(t, got, "格式1：成都公司的sheet页")
}
