package ground

import "context"

// ScoredCandidate is one ranked grounding returned by an Oracle or an
// Annotator. Namespace, ID and Name identify the candidate's primary
// authority; Groundings maps every namespace the candidate participates in to
// its identifier there (the primary pair included).
type ScoredCandidate struct {
	Namespace  string            `json:"namespace"`
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Score      float64           `json:"score"`
	Groundings map[string]string `json:"groundings"`
}

// Annotation is a span of input text an Annotator recognized as a named
// entity, with its candidates ordered by descending confidence.
type Annotation struct {
	Text       string            `json:"text"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	Candidates []ScoredCandidate `json:"matches"`
}

// Oracle grounds free text against a restricted namespace list, returning
// candidates ordered by descending confidence. Implementations must be
// side-effect-free and deterministic for fixed inputs so pipeline runs stay
// reproducible.
type Oracle interface {
	Ground(ctx context.Context, text string, namespaces []string, contextText string) ([]ScoredCandidate, error)
}

// Annotator runs named-entity recognition over free text and grounds each
// recognized span.
type Annotator interface {
	Annotate(ctx context.Context, text string, contextText string) ([]Annotation, error)
}

// MeshData answers offline questions about the MESH vocabulary: canonical
// names and tree positions.
type MeshData interface {
	Name(id string) (string, bool)
	HasTreePrefix(id, prefix string) bool
}
