package service

// Cache Tool Arguments

type CacheQueryResponseArgs struct {
	Query    string                 `json:"query" jsonschema:"required,description=The query text to cache"`
	Response map[string]interface{} `json:"response" jsonschema:"required,description=The structured response to cache verbatim for this query"`
}

type RetrieveSimilarResponseArgs struct {
	Query     string  `json:"query" jsonschema:"required,description=The query text to find semantically similar cached responses for"`
	TopK      int     `json:"top_k,omitempty" jsonschema:"description=Maximum number of matches to return (default 1)"`
	Threshold float64 `json:"threshold,omitempty" jsonschema:"description=Override the configured similarity threshold for this call (0 uses the configured value)"`
}

type ClearOldCacheArgs struct {
	MaxAgeSeconds int64 `json:"max_age_seconds,omitempty" jsonschema:"description=Remove entries older than this many seconds (default 86400)"`
}

type DeleteCacheEntryArgs struct {
	ID string `json:"id" jsonschema:"required,description=Id of the cache entry to delete (as returned by cache_query_response)"`
}

type GetCacheStatsArgs struct {
	// Dummy parameter for MCP framework compatibility (the tool doesn't actually use this)
	RandomString string `json:"random_string" jsonschema:"description=Dummy parameter for no-parameter tools"`
}
