package domain

// Document is a raw source text plus its provenance, created at ingestion
// time and immutable once loaded. Multi-page sources (PDFs) produce one
// Document per page.
type Document struct {
	ID         string
	Source     string // file path or external identifier
	Page       int    // 1-based page/section label
	TotalPages int
	Text       string
}

// Chunk is a bounded-length slice of a Document's text. Start and End are
// rune offsets into the source document; when the chunker is configured
// without overlap, chunks tile the document exactly.
type Chunk struct {
	ID     string
	DocID  string
	Source string
	Page   int
	Seq    int
	Start  int
	End    int
	Text   string
}

// Query is a user question with optional retrieval parameters. Ephemeral,
// never persisted.
type Query struct {
	Text    string
	TopK    int
	Filters map[string]string
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Citation points at the source location a generated claim is grounded on.
type Citation struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// AssembledContext is the bounded, citation-marked prompt context built from
// retrieved chunks. Citations[i] resolves the marker [i+1] in Text.
type AssembledContext struct {
	Text      string
	Citations []Citation
}

// Answer is the generated text plus the citations it actually resolved.
// Unsupported is set when the answer makes claims with no resolvable
// citation; it is a quality signal, not an error.
type Answer struct {
	Text        string     `json:"answer"`
	Citations   []Citation `json:"citations"`
	Unsupported bool       `json:"unsupported,omitempty"`
}
