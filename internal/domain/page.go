package domain

// Pagination is the backend's paging envelope metadata.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int   `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    *bool `json:"hasNext,omitempty"` // nil when the backend omits it
	HasPrev    bool  `json:"hasPrev"`
}

// Page is a paginated collection response.
type Page[T any] struct {
	Data       []T         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}
