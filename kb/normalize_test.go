package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/models"
)

func TestNormalize_FlatPoint(t *testing.T) {
	raw := map[string]interface{}{
		"point_id": "_sys_auto_gen_doc_id-123-7",
		"doc_id":   "doc-123",
		"doc_name": "技术规格手册",
		"content":  "额定电压 10kV",
	}

	chunk, ok := DefaultAdapter{}.Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, "_sys_auto_gen_doc_id-123-7", chunk.SliceID)
	assert.Equal(t, "doc-123", chunk.DocID)
	require.NotNil(t, chunk.DocName)
	assert.Equal(t, "技术规格手册", *chunk.DocName)
	assert.Equal(t, "额定电压 10kV", chunk.Content)
}

func TestNormalize_DocInfoNestedPoint(t *testing.T) {
	// Same logical point in the doc_info-nested shape must come out
	// identical to the flat shape.
	flat := map[string]interface{}{
		"point_id": "p-1",
		"doc_id":   "doc-9",
		"doc_name": "定商名录",
		"content":  "某某公司",
	}
	nested := map[string]interface{}{
		"id":      "p-1",
		"content": "某某公司",
		"doc_info": map[string]interface{}{
			"doc_id": "doc-9",
			"name":   "定商名录",
		},
	}

	a, ok := DefaultAdapter{}.Normalize(flat)
	require.True(t, ok)
	b, ok := DefaultAdapter{}.Normalize(nested)
	require.True(t, ok)

	assert.Equal(t, a.SliceID, b.SliceID)
	assert.Equal(t, a.DocID, b.DocID)
	assert.Equal(t, *a.DocName, *b.DocName)
	assert.Equal(t, a.Content, b.Content)
}

func TestNormalize_TableFieldsAndAttachment(t *testing.T) {
	raw := map[string]interface{}{
		"chunk_id":   "c-5",
		"chunk_type": "structured",
		"table_chunk_fields": []interface{}{
			map[string]interface{}{"field_name": "供应商名称", "field_value": "华北电气集团有限公司"},
			map[string]interface{}{"field_name": "类别", "field_value": "电缆"},
		},
		"chunk_attachment": []interface{}{
			map[string]interface{}{"link": "https://example.com/img.png"},
		},
	}

	chunk, ok := DefaultAdapter{}.Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, "c-5", chunk.SliceID)
	assert.True(t, chunk.IsStructured())
	require.Len(t, chunk.TableFields, 2)
	assert.Equal(t, "供应商名称", chunk.TableFields[0].Name)
	assert.Equal(t, "华北电气集团有限公司", chunk.TableFields[0].Value)
	require.NotNil(t, chunk.ImageURL)
	assert.Equal(t, "https://example.com/img.png", *chunk.ImageURL)
}

func TestNormalize_EmptyPointDropped(t *testing.T) {
	_, ok := DefaultAdapter{}.Normalize(map[string]interface{}{"point_id": "p-1"})
	assert.False(t, ok)

	_, ok = DefaultAdapter{}.Normalize(nil)
	assert.False(t, ok)
}

func TestNormalizePoints_ExcludesDocIDs(t *testing.T) {
	raw := []map[string]interface{}{
		{"point_id": "p-1", "doc_id": "keep", "content": "a"},
		{"point_id": "p-2", "doc_id": "skip", "content": "b"},
		{"point_id": "p-3", "doc_id": "keep", "content": "c"},
	}

	chunks := NormalizePoints(raw, NormalizeOptions{ExcludeDocIDs: []string{"skip"}})
	require.Len(t, chunks, 2)
	assert.Equal(t, "p-1", chunks[0].SliceID)
	assert.Equal(t, "p-3", chunks[1].SliceID)
}

func TestMatchSliceID(t *testing.T) {
	assert.True(t, MatchSliceID("doc-123-7", "doc-123-7"))
	assert.True(t, MatchSliceID("_sys_auto_gen_doc_id-123-7", "123-7"))
	assert.True(t, MatchSliceID("123-7", "_sys_auto_gen_doc_id-123-7"))
	assert.False(t, MatchSliceID("doc-123-7", "doc-123-8"))
	assert.False(t, MatchSliceID("", "doc-123-7"))
	assert.False(t, MatchSliceID("doc-123-7", ""))
}

func TestFullContent_StructuredChunk(t *testing.T) {
	chunk := models.Chunk{
		Content: "备注文本",
		TableFields: []models.TableField{
			{Name: "供应商名称", Value: "某某集团"},
			{Name: "类别", Value: "阀门"},
			{Name: "", Value: "裸值"},
			{Name: "空字段", Value: ""},
		},
	}

	assert.Equal(t, "供应商名称: 某某集团\n类别: 阀门\n裸值\n备注文本", FullContent(chunk))
}

func TestFullContent_Fallbacks(t *testing.T) {
	md := "# markdown"
	assert.Equal(t, "# markdown", FullContent(models.Chunk{MDContent: &md}))

	html := "<p>html</p>"
	assert.Equal(t, "<p>html</p>", FullContent(models.Chunk{HTMLContent: &html}))

	// A chunk with nothing readable serializes to JSON.
	out := FullContent(models.Chunk{SliceID: "p-1"})
	assert.Contains(t, out, `"slice_id":"p-1"`)
}
