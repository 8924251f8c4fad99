package dns

import "context"

// Record represents one resource record at the DNS provider.
type Record struct {
	ID    string // provider-assigned record id, empty for records not yet created
	RR    string // relative record name within the domain, e.g. "nas"
	Type  string // "AAAA"
	Value string // IP address
	TTL   *int   // seconds; nil when the provider did not report one
}

// Provider is the narrow surface this service needs from a DNS provider.
type Provider interface {
	// ListRecords returns one page of records under domain whose RR
	// matches rrKeyword, filtered to recordType. Pages are 1-based.
	ListRecords(ctx context.Context, domain, rrKeyword, recordType string, page, pageSize int) ([]Record, error)

	// CreateRecord creates record under domain and returns the new record id.
	CreateRecord(ctx context.Context, domain string, record Record) (string, error)

	// UpdateRecord rewrites the record identified by recordID and returns its id.
	UpdateRecord(ctx context.Context, recordID string, record Record) (string, error)
}
