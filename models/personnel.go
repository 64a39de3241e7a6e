package models

// Personnel is one certificate-holder record extracted from the certificate
// register document. All extracted fields are optional because the three
// source spreadsheet layouts carry different columns; Content always holds
// the raw chunk text the record was matched from.
type Personnel struct {
	Name              *string `json:"name,omitempty"`
	Department        *string `json:"department,omitempty"`
	Category          *string `json:"category,omitempty"`
	CertificateName   *string `json:"certificate_name,omitempty"`
	CertificateNumber *string `json:"certificate_number,omitempty"`
	IssueDate         *string `json:"issue_date,omitempty"`
	ExpiryDate        *string `json:"expiry_date,omitempty"`
	FreeStatus        *string `json:"free_status,omitempty"`
	Content           string  `json:"content"`
	SliceID           *string `json:"slice_id,omitempty"`
	DocID             *string `json:"doc_id,omitempty"`
}
