// Package retrieval implements the Retrieval Engine (RE): keyword,
// semantic, and hybrid query modes over the Inverted Index and Embedding
// Store, with score normalization, linear fusion, and stable result IDs.
// Grounded on internal/search's fusion/engine split,
// adapted from RRF fusion to the spec's weighted-linear-fusion formula
// (original_source/src/hybrid.rs).
package retrieval

// Mode selects which scoring path a query runs through.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// ParseMode accepts the original's short aliases (k/s/h) alongside the full
// names.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "keyword", "k":
		return ModeKeyword, true
	case "semantic", "s":
		return ModeSemantic, true
	case "hybrid", "h":
		return ModeHybrid, true
	default:
		return "", false
	}
}

// Weights configures linear score fusion.
type Weights struct {
	Text   float64
	Vector float64
}

// DefaultWeights matches spec §4.9's defaults.
var DefaultWeights = Weights{Text: 0.7, Vector: 0.3}

// Result is one ranked hit, populated differently depending on Mode:
// keyword mode leaves Vector fields at their zero value; semantic mode
// leaves Text fields at zero; hybrid mode populates both.
type Result struct {
	Path        string
	Score       float64 // combined score used for ranking
	TextScore   float64 // raw BM25 score
	VectorScore float64 // raw cosine similarity, [-1, 1]
	TextNorm    float64 // [0, 1]
	VectorNorm  float64 // [0, 1]
	Snippet     string
	Line        int // 1-indexed; 0 means "no specific line"
	ChunkStart  int
	ChunkEnd    int
	ResultID    string // 16-hex prefix of BLAKE3(path | line | snippet)
}

// Options configures a single retrieval call.
type Options struct {
	Mode        Mode
	MaxResults  int
	CandidateK  int // hybrid/keyword fan-out before filtering; 0 = use default
	Weights     Weights
	FileType    string
	Glob        string
	Exclude     string
	SearchRoot  string
}
