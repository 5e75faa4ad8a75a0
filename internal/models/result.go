package models

// SearchResult is a single search hit. SemanticScore is 1 - distance from
// the similarity search and KeywordScore the max-normalized keyword relevance.
// Score is the ranking score: the weighted fusion of both when the keyword
// index matched the query, otherwise equal to SemanticScore.
type SearchResult struct {
	Document      *Document `json:"document"`
	Score         float64   `json:"score"`
	SemanticScore float64   `json:"semantic_score"`
	KeywordScore  float64   `json:"keyword_score"`
	Rank          int       `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Query     string          `json:"query"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
}

// Status summarizes the stores behind the service.
type Status struct {
	Documents           int64 `json:"documents"`
	GraphNodes          int64 `json:"graph_nodes"`
	GraphRelationships  int64 `json:"graph_relationships"`
	KeywordDocuments    int64 `json:"keyword_documents"`
	GraphAvailable      bool  `json:"graph_available"`
	GraphMirrorFailures int64 `json:"graph_mirror_failures"`
	EmbeddingDimensions int   `json:"embedding_dimensions"`
	DiskUsageBytes      int64 `json:"disk_usage_bytes"`
}

// RepairReport describes what Repair rebuilt.
type RepairReport struct {
	Documents        int `json:"documents"`
	NodesMirrored    int `json:"nodes_mirrored"`
	OrphansRemoved   int `json:"orphans_removed"`
	KeywordReindexed int `json:"keyword_reindexed"`
}
