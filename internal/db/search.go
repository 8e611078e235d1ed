package db

// KNNQuery asks an FT index for the K nearest neighbours of Vector.
type KNNQuery struct {
	IndexName    string
	VectorField  string // "vector" when empty
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is a KNN answer in engine order.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one neighbour. Distance is the engine's __vector_score,
// lower is closer.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
