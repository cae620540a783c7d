package calltree

// Registry deduplicates call trees by id. The monitored application
// keeps serving trees it has already reported, so each id must be
// processed at most once over the process lifetime.
//
// A positive capacity bounds the registry with FIFO eviction of the
// oldest ids; zero or negative keeps every id forever, matching the
// upstream dashboard's behavior. The registry is owned by the poll loop
// and is not safe for concurrent use.
type Registry struct {
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewRegistry creates a registry. capacity <= 0 means unbounded.
func NewRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		seen:     make(map[string]struct{}),
	}
}

// Register records an id. It returns true the first time an id is seen
// and false on every subsequent call with the same id.
func (r *Registry) Register(id string) bool {
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}

	if r.capacity > 0 {
		r.order = append(r.order, id)
		for len(r.order) > r.capacity {
			delete(r.seen, r.order[0])
			r.order = r.order[1:]
		}
	}

	return true
}

// Len returns the number of ids currently recorded.
func (r *Registry) Len() int {
	return len(r.seen)
}
