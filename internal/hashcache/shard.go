package hashcache

// Shard is a private, unsynchronised buffer of new entries owned by one
// worker. Shards are merged into a Cache with Absorb.
type Shard struct {
	keys []string
	vecs map[string][]float64
}

// NewShard creates an empty shard.
func NewShard() *Shard {
	return &Shard{vecs: make(map[string][]float64)}
}

// Put records vec under key unless the key is already present.
func (s *Shard) Put(key string, vec []float64) {
	if _, ok := s.vecs[key]; ok {
		return
	}
	s.keys = append(s.keys, key)
	s.vecs[key] = vec
}

// Get returns the vector recorded under key.
func (s *Shard) Get(key string) ([]float64, bool) {
	vec, ok := s.vecs[key]
	return vec, ok
}

// Len returns the number of recorded entries.
func (s *Shard) Len() int {
	return len(s.keys)
}
