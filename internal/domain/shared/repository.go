package shared

// Page holds limit/offset pagination options. SortBy and SortOrder are
// client-supplied and validated by the repository that honors them.
type Page struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// SortKeys returns the requested sort key and direction.
func (p Page) SortKeys() (by, dir string) {
	return p.SortBy, p.SortOrder
}

// Normalize clamps the page into [1, maxLimit], falling back to defaultLimit
// when no limit was given. Negative offsets become zero.
func (p Page) Normalize(defaultLimit, maxLimit int) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
