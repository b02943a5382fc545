package memgate

// Payload is the metadata the service stores alongside an item. The bridge
// never mutates it directly, only via remote write/delete calls.
type Payload struct {
	UserID  string   `json:"user_id"`
	Scope   string   `json:"scope"`
	Tags    []string `json:"tags"`
	Source  string   `json:"source,omitempty"`
	TTLDays int      `json:"ttl_days,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
}

// MemoryItem is a stored memory as returned by the service.
type MemoryItem struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Payload Payload `json:"payload"`
}

// MemoryHit is one scored result from semantic search.
type MemoryHit struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
	Payload Payload `json:"payload"`
}

// AddRequest is the body of POST /api/v1/mem/add.
type AddRequest struct {
	UserID string   `json:"user_id"`
	Scope  string   `json:"scope,omitempty"`
	Text   string   `json:"text"`
	Tags   []string `json:"tags"`
}

// SearchQuery holds the parameters of GET /api/v1/mem/search.
type SearchQuery struct {
	Query  string
	UserID string
	K      int
	Scope  string
	Tags   []string
}

// UpdateRequest is the body of PATCH /api/v1/mem/{id}. Nil fields are left
// untouched by the service.
type UpdateRequest struct {
	Text    *string  `json:"text,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Scope   *string  `json:"scope,omitempty"`
	Deleted *bool    `json:"deleted,omitempty"`
}
