package models

import "strings"

// TableField is a single cell of a structured table chunk. Order matters:
// the knowledge base returns fields in table column order and the UI renders
// them the same way.
type TableField struct {
	Name  string `json:"field_name"`
	Value string `json:"field_value"`
}

// Chunk is a normalized knowledge base search hit. The upstream API returns
// points in several shapes depending on collection settings; the kb package
// folds them all into this one type.
type Chunk struct {
	Content     string       `json:"content"`
	SliceID     string       `json:"slice_id"`
	DocID       string       `json:"doc_id"`
	DocName     *string      `json:"doc_name,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty"`
	ChunkType   *string      `json:"chunk_type,omitempty"`
	MDContent   *string      `json:"md_content,omitempty"`
	HTMLContent *string      `json:"html_content,omitempty"`
	PointID     *string      `json:"point_id,omitempty"`
	TableFields []TableField `json:"table_chunk_fields,omitempty"`
}

// IsStructured reports whether the chunk came from a spreadsheet-style table.
// The upstream API is loose about casing and padding on chunk_type.
func (c *Chunk) IsStructured() bool {
	return c.ChunkType != nil && strings.EqualFold(strings.TrimSpace(*c.ChunkType), "structured")
}

// DocNameOrEmpty returns the document name or "".
func (c *Chunk) DocNameOrEmpty() string {
	if c.DocName == nil {
		return ""
	}
	return *c.DocName
}
