package domain

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Document is the canonical searchable unit produced by the normalizer.
// ID is derived from the source row's primary key, so re-ingesting the
// same catalog overwrites entries instead of duplicating them.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// ConversationTurn is one message in a chat session.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RetrievalResult is one ranked document. RerankScore is set only when
// reranking was requested and succeeded. The two scores come from
// different models and are never compared or averaged.
type RetrievalResult struct {
	Document    Document
	Similarity  float64
	RerankScore *float64
}

// RetrievalSet is the ordered output of the retrieval pipeline.
// RerankerFallback reports that reranking was requested but failed,
// leaving the results in similarity order.
type RetrievalSet struct {
	Results          []RetrievalResult
	Reranked         bool
	RerankerFallback bool
}

// RowError records a single failed row during ingestion.
type RowError struct {
	Row int    // zero-based row index within the run
	Ref string // source identifier when one could be extracted
	Err error
}

// IngestReport summarizes an ingestion run. Row failures are isolated:
// they appear in Errors and never abort the batch.
type IngestReport struct {
	Inserted int
	Skipped  int
	Errors   []RowError
}
