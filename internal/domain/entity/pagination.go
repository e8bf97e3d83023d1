package entity

// PaginationParams represents offset based pagination request parameters
type PaginationParams struct {
	Limit  int `json:"limit" query:"limit"`
	Offset int `json:"offset" query:"offset"`
}

// PaginationMeta represents pagination metadata in responses
type PaginationMeta struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// PaginatedPaymentsResponse represents paginated payment response
type PaginatedPaymentsResponse struct {
	Data       []*Payment     `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// Pagination constants
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	DefaultDiscoveryLimit = 100
	MaxDiscoveryLimit     = 500
)

// Validate validates and normalizes pagination parameters
func (p *PaginationParams) Validate() {
	if p.Offset < 0 {
		p.Offset = 0
	}

	if p.Limit < MinPageSize {
		p.Limit = DefaultPageSize
	} else if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

// DiscoveryLimit normalizes the limit of a mediator discovery query.
func DiscoveryLimit(limit int) int {
	if limit < 1 {
		return DefaultDiscoveryLimit
	}
	if limit > MaxDiscoveryLimit {
		return MaxDiscoveryLimit
	}
	return limit
}
