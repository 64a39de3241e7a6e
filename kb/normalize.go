package kb

import (
	"encoding/json"
	"strings"

	"procurement-backend/models"
)

// PointAdapter converts one raw search result point into a normalized
// chunk. The default adapter understands both wire shapes the knowledge
// base produces (flat points and doc_info-nested points); callers with
// unusual collections can plug in their own.
type PointAdapter interface {
	Normalize(raw map[string]interface{}) (models.Chunk, bool)
}

// NormalizeOptions controls point normalization.
type NormalizeOptions struct {
	// ExcludeDocIDs drops points belonging to these documents.
	ExcludeDocIDs []string
	// Adapter overrides the default point adapter.
	Adapter PointAdapter
}

// NormalizePoints converts a list of raw points into chunks, applying the
// document exclusion set.
func NormalizePoints(raw []map[string]interface{}, opts NormalizeOptions) []models.Chunk {
	adapter := opts.Adapter
	if adapter == nil {
		adapter = DefaultAdapter{}
	}

	excluded := make(map[string]struct{}, len(opts.ExcludeDocIDs))
	for _, id := range opts.ExcludeDocIDs {
		excluded[id] = struct{}{}
	}

	chunks := make([]models.Chunk, 0, len(raw))
	for _, point := range raw {
		chunk, ok := adapter.Normalize(point)
		if !ok {
			continue
		}
		if _, skip := excluded[chunk.DocID]; skip {
			continue
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// DefaultAdapter handles the point shapes returned by the search API.
type DefaultAdapter struct{}

// Normalize extracts chunk fields, probing the field name aliases the API
// uses across its response shapes.
func (DefaultAdapter) Normalize(raw map[string]interface{}) (models.Chunk, bool) {
	if raw == nil {
		return models.Chunk{}, false
	}

	chunk := models.Chunk{}

	docInfo, _ := raw["doc_info"].(map[string]interface{})
	if docInfo != nil {
		if name := stringAt(docInfo, "doc_name", "name"); name != "" {
			chunk.DocName = strptr(name)
		}
		chunk.DocID = stringAt(docInfo, "doc_id")
	}
	if chunk.DocName == nil {
		if name := stringAt(raw, "doc_name", "document_name"); name != "" {
			chunk.DocName = strptr(name)
		}
	}
	if chunk.DocID == "" {
		chunk.DocID = stringAt(raw, "doc_id", "document_id")
	}

	chunk.SliceID = stringAt(raw, "point_id", "id", "chunk_id")
	if pid := stringAt(raw, "point_id", "id"); pid != "" {
		chunk.PointID = strptr(pid)
	}

	chunk.Content = stringAt(raw, "content", "text", "chunk")
	if md := stringAt(raw, "md_content", "markdown_content"); md != "" {
		chunk.MDContent = strptr(md)
	}
	if html := stringAt(raw, "html_content", "html"); html != "" {
		chunk.HTMLContent = strptr(html)
	}
	if ct := stringAt(raw, "chunk_type"); ct != "" {
		chunk.ChunkType = strptr(ct)
	}

	if fields, ok := raw["table_chunk_fields"].([]interface{}); ok {
		for _, f := range fields {
			fm, ok := f.(map[string]interface{})
			if !ok {
				continue
			}
			chunk.TableFields = append(chunk.TableFields, models.TableField{
				Name:  stringAt(fm, "field_name"),
				Value: stringAt(fm, "field_value"),
			})
		}
	}

	// Image links arrive via chunk_attachment when get_attachment_link
	// is set on the search request.
	if attachments, ok := raw["chunk_attachment"].([]interface{}); ok && len(attachments) > 0 {
		if am, ok := attachments[0].(map[string]interface{}); ok {
			if link := stringAt(am, "link"); link != "" {
				chunk.ImageURL = strptr(link)
			}
		}
	}

	if chunk.Content == "" && chunk.ImageURL == nil && len(chunk.TableFields) == 0 {
		return chunk, false
	}
	return chunk, true
}

// FullContent reconstructs the complete untruncated content of a chunk.
// Structured chunks render their table fields as ordered "name: value"
// lines followed by the free-text content; otherwise it falls back through
// content, markdown, HTML, and finally the serialized chunk itself.
func FullContent(chunk models.Chunk) string {
	var parts []string
	for _, field := range chunk.TableFields {
		switch {
		case field.Name != "" && field.Value != "":
			parts = append(parts, field.Name+": "+field.Value)
		case field.Value != "":
			parts = append(parts, field.Value)
		}
	}
	if chunk.Content != "" {
		parts = append(parts, chunk.Content)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	if chunk.MDContent != nil && *chunk.MDContent != "" {
		return *chunk.MDContent
	}
	if chunk.HTMLContent != nil && *chunk.HTMLContent != "" {
		return *chunk.HTMLContent
	}
	serialized, err := json.Marshal(chunk)
	if err != nil {
		return ""
	}
	return string(serialized)
}

// MatchSliceID reports whether a model-cited slice id refers to the given
// chunk slice id. Citations are sometimes truncated or carry an extra
// document prefix, so in addition to exact equality either side may be a
// suffix of the other.
func MatchSliceID(sliceID, cited string) bool {
	if sliceID == "" || cited == "" {
		return false
	}
	return sliceID == cited ||
		strings.HasSuffix(sliceID, cited) ||
		strings.HasSuffix(cited, sliceID)
}

func stringAt(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func strptr(s string) *string {
	return &s
}
