package ground

import (
	"context"
	"fmt"

	"github.com/gyorilab/trialsynth/pkg/common"
	"github.com/gyorilab/trialsynth/pkg/logger"
)

// Default namespace priorities per entity kind. Conditions favor disease
// vocabularies, interventions favor chemical and drug vocabularies.
var (
	ConditionNamespaces    = []string{"MESH", "DOID", "EFO", "HP", "MONDO"}
	InterventionNamespaces = []string{"MESH", "CHEBI", "DRUGBANK", "EFO", "HGNC"}
)

// MESH tree prefixes accepted per entity kind: diseases (C) and psychiatric
// disorders (F) for conditions, chemicals/drugs (D) and analytical techniques
// (E) for interventions.
var (
	conditionTreePrefixes    = []string{"C", "F"}
	interventionTreePrefixes = []string{"D", "E"}
)

// PreprocessFunc normalizes an entity before resolution. It receives a copy
// owned by the resolver and may mutate or replace it.
type PreprocessFunc func(*common.BioEntity) *common.BioEntity

// Params configures a Grounder.
type Params struct {
	// Namespaces restricts oracle queries during general resolution.
	Namespaces []string
	// RestrictMeshPrefixes limits MESH-grounded candidates to the given tree
	// positions. Empty means no restriction.
	RestrictMeshPrefixes []string
	// MeshNamespace is the exact namespace token that marks a MESH grounding
	// in entities and candidate grounding maps. Defaults to "MESH".
	MeshNamespace string
	// Preprocess runs before resolution. Defaults to the identity function.
	Preprocess PreprocessFunc

	Oracle    Oracle
	Annotator Annotator
	Mesh      MeshData
	Log       *logger.Logger
}

// Grounder resolves a BioEntity to one or more grounded copies using an
// oracle, an annotator fallback, and an offline MESH vocabulary.
type Grounder struct {
	namespaces           []string
	restrictMeshPrefixes []string
	meshNS               string
	preprocess           PreprocessFunc

	oracle    Oracle
	annotator Annotator
	mesh      MeshData
	log       *logger.Logger
}

// NewGrounder builds a resolver from params. Oracle, Annotator and Mesh are
// required.
func NewGrounder(p Params) (*Grounder, error) {
	if p.Oracle == nil {
		return nil, fmt.Errorf("ground: oracle is required")
	}
	if p.Annotator == nil {
		return nil, fmt.Errorf("ground: annotator is required")
	}
	if p.Mesh == nil {
		return nil, fmt.Errorf("ground: mesh data is required")
	}
	g := &Grounder{
		namespaces:           p.Namespaces,
		restrictMeshPrefixes: p.RestrictMeshPrefixes,
		meshNS:               p.MeshNamespace,
		preprocess:           p.Preprocess,
		oracle:               p.Oracle,
		annotator:            p.Annotator,
		mesh:                 p.Mesh,
		log:                  p.Log,
	}
	if g.meshNS == "" {
		g.meshNS = "MESH"
	}
	if g.preprocess == nil {
		g.preprocess = func(e *common.BioEntity) *common.BioEntity { return e }
	}
	if g.log == nil {
		g.log = logger.Nop()
	}
	return g, nil
}

// NewConditionGrounder builds a resolver for condition mentions, restricted
// to the disease and psychiatry MESH trees.
func NewConditionGrounder(p Params) (*Grounder, error) {
	if p.Namespaces == nil {
		p.Namespaces = ConditionNamespaces
	}
	if p.RestrictMeshPrefixes == nil {
		p.RestrictMeshPrefixes = conditionTreePrefixes
	}
	return NewGrounder(p)
}

// NewInterventionGrounder builds a resolver for intervention mentions,
// restricted to the chemical and technique MESH trees.
func NewInterventionGrounder(p Params) (*Grounder, error) {
	if p.Namespaces == nil {
		p.Namespaces = InterventionNamespaces
	}
	if p.RestrictMeshPrefixes == nil {
		p.RestrictMeshPrefixes = interventionTreePrefixes
	}
	return NewGrounder(p)
}

// WarmUp issues a throwaway oracle query so lazy backend initialization cost
// is paid before the worker pool starts.
func (g *Grounder) WarmUp(ctx context.Context) error {
	if _, err := g.oracle.Ground(ctx, "warm up", g.namespaces, ""); err != nil {
		return fmt.Errorf("ground: warm up: %w", err)
	}
	return nil
}

// Resolve grounds an entity against known vocabularies. The input entity is
// never mutated; resolved forms are returned as copies. An empty result with
// a nil error means the entity could not be grounded.
//
// Resolution order: MESH-tagged entities are looked up in the offline
// vocabulary first, then re-grounded through the oracle if unknown. Entities
// already carrying another namespace pass through unchanged. Everything else
// goes to the oracle, and on an oracle miss to the annotator over the
// entity's text and, if present, its description.
func (g *Grounder) Resolve(ctx context.Context, entity *common.BioEntity, contextText string) ([]*common.BioEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	work := g.preprocess(entity.Clone())

	if work.NS == g.meshNS && work.NSID != "" {
		if name, ok := g.mesh.Name(work.NSID); ok {
			work.GroundedTerm = name
			return []*common.BioEntity{work}, nil
		}
		candidates, err := g.oracle.Ground(ctx, work.Text, []string{g.meshNS}, "")
		if err != nil {
			return nil, fmt.Errorf("ground %q: %w", work.Text, err)
		}
		if len(candidates) == 0 {
			return nil, nil
		}
		return g.matchYield(work, candidates[0]), nil
	}

	if work.NS != "" && work.NSID != "" {
		return []*common.BioEntity{work}, nil
	}

	candidates, err := g.oracle.Ground(ctx, work.Text, g.namespaces, contextText)
	if err != nil {
		return nil, fmt.Errorf("ground %q: %w", work.Text, err)
	}
	if len(candidates) > 0 {
		return g.matchYield(work, candidates[0]), nil
	}

	var resolved []*common.BioEntity
	annotations, err := g.annotator.Annotate(ctx, work.Text, contextText)
	if err != nil {
		return nil, fmt.Errorf("annotate %q: %w", work.Text, err)
	}
	for _, annotation := range annotations {
		if len(annotation.Candidates) == 0 {
			continue
		}
		resolved = append(resolved, g.matchYield(work, annotation.Candidates[0])...)
	}
	if work.Description != "" {
		annotations, err = g.annotator.Annotate(ctx, work.Description, contextText)
		if err != nil {
			return nil, fmt.Errorf("annotate description of %q: %w", work.Text, err)
		}
		for _, annotation := range annotations {
			if len(annotation.Candidates) == 0 {
				continue
			}
			resolved = append(resolved, g.matchYield(work, annotation.Candidates[0])...)
		}
	}
	return resolved, nil
}

// matchYield projects a scored candidate onto the entity, preferring the
// candidate's MESH grounding when it has one. With a tree restriction in
// place, a MESH grounding outside the allowed trees drops the candidate
// entirely rather than falling back to its primary authority.
func (g *Grounder) matchYield(entity *common.BioEntity, candidate ScoredCandidate) []*common.BioEntity {
	meshID := candidate.Groundings[g.meshNS]
	if meshID != "" {
		if len(g.restrictMeshPrefixes) > 0 && !g.anyTreePrefix(meshID) {
			g.log.Debug("[ground] candidate outside restricted mesh trees",
				"text", entity.Text, "mesh_id", meshID)
			return nil
		}
		return []*common.BioEntity{groundedCopy(entity, g.meshNS, meshID, candidate.Name)}
	}
	return []*common.BioEntity{groundedCopy(entity, candidate.Namespace, candidate.ID, candidate.Name)}
}

func (g *Grounder) anyTreePrefix(meshID string) bool {
	for _, prefix := range g.restrictMeshPrefixes {
		if g.mesh.HasTreePrefix(meshID, prefix) {
			return true
		}
	}
	return false
}

func groundedCopy(entity *common.BioEntity, ns, nsID, term string) *common.BioEntity {
	grounded := entity.Clone()
	grounded.NS = ns
	grounded.NSID = nsID
	grounded.GroundedTerm = term
	return grounded
}
