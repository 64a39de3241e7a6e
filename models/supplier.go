package models

import "strings"

// Relevance classifies how well a supplier matches the product being
// inquired about. Values come back from the model as free text, so parsing
// is tolerant and anything unrecognized maps to RelevanceUnknown.
type Relevance string

const (
	RelevanceStrong   Relevance = "强相关"
	RelevancePossible Relevance = "可能相关"
	RelevanceUnknown  Relevance = ""
)

// ParseRelevance maps a model-produced relevance tag to a known value.
// Comparison trims whitespace and ignores ASCII case.
func ParseRelevance(s string) Relevance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "强相关", "strong":
		return RelevanceStrong
	case "可能相关", "possible":
		return RelevancePossible
	default:
		return RelevanceUnknown
	}
}

// Supplier represents one supplier entry, either extracted from the
// knowledge base or entered manually.
type Supplier struct {
	Name            string    `json:"name"`
	Source          string    `json:"source"`
	DocID           *string   `json:"doc_id,omitempty"`
	DocName         *string   `json:"doc_name,omitempty"`
	URL             *string   `json:"url,omitempty"`
	Description     *string   `json:"description,omitempty"`
	SliceID         *string   `json:"slice_id,omitempty"`
	Content         *string   `json:"content,omitempty"`
	ProductCode     *string   `json:"product_code,omitempty"`
	ProductName     *string   `json:"product_name,omitempty"`
	SupplierType    *string   `json:"supplier_type,omitempty"`
	SubCategoryName *string   `json:"sub_category_name,omitempty"`
	SubCategoryCode *string   `json:"sub_category_code,omitempty"`
	ValidFrom       *string   `json:"valid_from,omitempty"`
	ValidTo         *string   `json:"valid_to,omitempty"`
	ContactPerson   *string   `json:"contact_person,omitempty"`
	Relevance       Relevance `json:"relevance,omitempty"`
}

// SupplierSource values.
const (
	SupplierSourceKnowledgeBase = "knowledge_base"
	SupplierSourceWebSearch     = "web_search"
)
