package model

import "time"

// Canonical contract types stored in vagas.tipo_contrato.
const (
	ContractFullTime   = "Tempo inteiro"
	ContractPartTime   = "Meio período"
	ContractInternship = "Estágio"
	ContractFreelance  = "Freelance"
	ContractTemporary  = "Temporário"
	ContractRemote     = "Remoto"
)

// RawListing is a posting as returned by a collector, before dedup.
type RawListing struct {
	Title        string
	Company      string
	Location     string
	Description  string
	ContractType string   // free text, normalized by the writer
	SalaryMin    *float64 // optional
	SalaryMax    *float64 // optional
	Currency     string   // empty means the pipeline default (AOA)
	SourceURL    string
	PublishedAt  *time.Time // nullable (not every source exposes it)
	ExpiresAt    *time.Time // nullable
	Requirements []string
	ContactEmail string
}

// Listing is a deduplicated, canonical job posting (vagas).
type Listing struct {
	ID           string
	Title        string
	Company      string
	Location     string
	ProvinceID   string
	Description  string
	Requirements []string
	ContractType string
	SalaryMin    *float64
	SalaryMax    *float64
	Currency     string
	SourceURL    string
	ContactEmail string
	CollectedAt  time.Time
	PublishedAt  *time.Time
	ExpiresAt    *time.Time
	Active       bool
	Fingerprint  string
}

// SourceListingLink records that a source reported a listing (vagas_fontes).
type SourceListingLink struct {
	SourceID    string
	ListingID   string
	CollectedAt time.Time
}

// Province is a row of the provincias_angola reference table.
type Province struct {
	ID   string
	Name string
}
