package models

import "time"

// Project groups the line items of one uploaded bill of quantities.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectCreate is the request body for creating a project.
type ProjectCreate struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// Product is one procurement line item, enriched over time with spec
// summaries, supplier candidates and inquiry results.
type Product struct {
	ID              string     `json:"id"`
	ProjectID       string     `json:"project_id"`
	ProjectCode     string     `json:"project_code"`
	ProjectName     string     `json:"project_name"`
	ProjectFeatures *string    `json:"project_features,omitempty"`
	Unit            string     `json:"unit"`
	Quantity        float64    `json:"quantity"`
	OtherSpecs      []Chunk    `json:"other_specs"`
	Suppliers       []Supplier `json:"suppliers"`
	SpecSummary     *string    `json:"spec_summary,omitempty"`
	Price           *float64   `json:"price,omitempty"`
	PriceUnit       *string    `json:"price_unit,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	InquiryCompleted bool      `json:"inquiry_completed"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ProductUpdate carries the mutable inquiry fields. Nil means leave the
// stored value unchanged.
type ProductUpdate struct {
	Price            *float64 `json:"price"`
	PriceUnit        *string  `json:"price_unit"`
	Notes            *string  `json:"notes"`
	InquiryCompleted *bool    `json:"inquiry_completed"`
}

// LineItem is a parsed spreadsheet row before it becomes a Product.
type LineItem struct {
	ProjectCode     string   `json:"project_code"`
	ProjectName     string   `json:"project_name"`
	ProjectFeatures *string  `json:"project_features,omitempty"`
	Unit            string   `json:"unit"`
	Quantity        float64  `json:"quantity"`
}
