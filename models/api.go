package models

// KnowledgeSearchRequest asks for specs and suppliers for one product.
type KnowledgeSearchRequest struct {
	ProductName     string  `json:"product_name" binding:"required"`
	ProductFeatures *string `json:"product_features"`
}

// KnowledgeSearchResponse is the combined spec + supplier result.
type KnowledgeSearchResponse struct {
	Specs       []Chunk    `json:"specs"`
	Suppliers   []Supplier `json:"suppliers"`
	SpecSummary *string    `json:"spec_summary,omitempty"`
}

// SpecSearchResponse is the spec-only result.
type SpecSearchResponse struct {
	Specs       []Chunk `json:"specs"`
	SpecSummary *string `json:"spec_summary,omitempty"`
}

// SupplierSearchResponse is the supplier-only result.
type SupplierSearchResponse struct {
	Suppliers []Supplier `json:"suppliers"`
}

// QARequest is a free-form knowledge base question.
type QARequest struct {
	Question string `json:"question" binding:"required"`
}

// QAResponse carries the answer plus the chunks it cites.
type QAResponse struct {
	Answer     string  `json:"answer"`
	References []Chunk `json:"references"`
}

// CertificatePersonnelRequest is a natural language staffing query, e.g.
// "标段时间：2026年1月到2026年3月，需要2个一级建造师注册证书的人员".
type CertificatePersonnelRequest struct {
	Query string `json:"query" binding:"required"`
}

// CertificatePersonnelResponse lists the matching certificate holders.
type CertificatePersonnelResponse struct {
	Question      string      `json:"question"`
	PersonnelList []Personnel `json:"personnel_list"`
	References    []Chunk     `json:"references"`
}

// RefreshImageLinkRequest asks for a fresh signed link for an image chunk.
type RefreshImageLinkRequest struct {
	SliceID string `json:"slice_id" binding:"required"`
}

// RefreshImageLinkResponse returns the refreshed link, if one was found.
type RefreshImageLinkResponse struct {
	ImageURL *string `json:"image_url,omitempty"`
}

// SpecsAndSuppliersUpdate replaces a product's cached search results.
type SpecsAndSuppliersUpdate struct {
	Specs       []Chunk    `json:"specs"`
	Suppliers   []Supplier `json:"suppliers"`
	SpecSummary *string    `json:"spec_summary"`
}
