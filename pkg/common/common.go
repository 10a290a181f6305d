package common

import (
	"time"

	"github.com/gyorilab/trialsynth/pkg/logger"
)

// EntityKind is the closed set of bioentity variants the graph currently
// supports. Dispatch happens on the kind tag so new variants can be added
// without touching the grounding logic.
type EntityKind string

const (
	KindCondition    EntityKind = "condition"
	KindIntervention EntityKind = "intervention"
)

// RelType returns the edge relation derived from the kind, e.g.
// "has_condition" for a condition entity.
func (k EntityKind) RelType() string {
	return "has_" + string(k)
}

// Node is the shared identity of every graph node: a namespace plus a local
// identifier, a non-unique label set and the source registry tag.
type Node struct {
	NS     string
	NSID   string
	Labels []string
	Source string
}

// CURIE derives the node's compact identifier with a lower-cased namespace.
// A node missing either part produces an empty CURIE; that is logged by the
// caller where the node identity is known, not treated as fatal here.
func (n *Node) CURIE() string {
	return CURIE(n.NS, n.NSID)
}

// SetCURIE assigns namespace and identifier from a CURIE string. Malformed
// input (anything but exactly one colon) is a hard failure.
func (n *Node) SetCURIE(curie string) error {
	ns, id, err := SplitCURIE(curie)
	if err != nil {
		return err
	}
	n.NS = ns
	n.NSID = id
	return nil
}

// HasLabel reports whether the node carries the given label.
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// BioEntity is a biomedical mention extracted from a trial record: free text,
// optionally a description, and once resolved a canonical namespace,
// identifier and term. Origin is the CURIE of the trial the mention came
// from, a back-reference rather than an ownership edge.
type BioEntity struct {
	Node
	Kind         EntityKind
	Text         string
	Description  string
	Origin       string
	GroundedTerm string
}

// NewCondition creates a condition mention. The "condition" label is always
// present; extras are appended after it.
func NewCondition(text, origin, source string, extraLabels ...string) *BioEntity {
	return newBioEntity(KindCondition, text, origin, source, extraLabels)
}

// NewIntervention creates an intervention mention. The "intervention" label
// is always present; extras are appended after it.
func NewIntervention(text, origin, source string, extraLabels ...string) *BioEntity {
	return newBioEntity(KindIntervention, text, origin, source, extraLabels)
}

func newBioEntity(kind EntityKind, text, origin, source string, extraLabels []string) *BioEntity {
	labels := make([]string, 0, 1+len(extraLabels))
	labels = append(labels, string(kind))
	labels = append(labels, extraLabels...)
	return &BioEntity{
		Node: Node{
			Labels: labels,
			Source: source,
		},
		Kind:   kind,
		Text:   text,
		Origin: origin,
	}
}

// Clone returns a deep copy of the entity. Grounding never mutates its input;
// every resolved result is a fresh copy.
func (e *BioEntity) Clone() *BioEntity {
	clone := *e
	clone.Labels = append([]string(nil), e.Labels...)
	return &clone
}

// DesignInfo describes how a trial was designed. Fallback carries the raw
// registry value when the structured fields could not be populated.
type DesignInfo struct {
	Purpose    string
	Allocation string
	Masking    string
	Assignment string
	Fallback   string
}

// Outcome is a measured trial outcome and the time frame it was assessed in.
type Outcome struct {
	Measure   string
	TimeFrame string
}

// Reference is a literature reference attached to a trial record.
type Reference struct {
	PMID string
	Type string
}

// Trial is a registry record: namespace is the registry key and NSID the
// registry record identifier. Entities is a mutable bag filled in three
// passes: ungrounded mentions at parse time, emptied by aggregation, then
// repopulated with grounded replacements.
type Trial struct {
	Node

	Title               string
	OfficialTitle       string
	BriefSummary        string
	DetailedDescription string

	Design            DesignInfo
	PrimaryOutcomes   []Outcome
	SecondaryOutcomes []Outcome
	SecondaryIDs      []SecondaryID
	References        []Reference
	Phases            []string

	StartDate                 *time.Time
	StartDateType             string
	CompletionDate            *time.Time
	CompletionDateType        string
	PrimaryCompletionDate     *time.Time
	PrimaryCompletionDateType string
	LastUpdateSubmitDate      *time.Time

	OverallStatus string
	WhyStopped    string

	Entities []*BioEntity
}

// NewTrial creates a trial node with the base "clinical_trial" label.
func NewTrial(ns, id string, extraLabels ...string) *Trial {
	labels := make([]string, 0, 1+len(extraLabels))
	labels = append(labels, "clinical_trial")
	labels = append(labels, extraLabels...)
	return &Trial{
		Node: Node{
			NS:     ns,
			NSID:   id,
			Labels: labels,
		},
	}
}

// Conditions is a derived read view over the entity bag; it is never stored
// separately.
func (t *Trial) Conditions() []*BioEntity {
	return t.entitiesOfKind(KindCondition)
}

// Interventions is a derived read view over the entity bag.
func (t *Trial) Interventions() []*BioEntity {
	return t.entitiesOfKind(KindIntervention)
}

func (t *Trial) entitiesOfKind(kind EntityKind) []*BioEntity {
	var out []*BioEntity
	for _, e := range t.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Edge links a trial to a grounded bioentity. Edges are value objects: the
// relation is derived from the entity kind and duplicates collapse during
// serialization.
type Edge struct {
	Trial   *Trial
	Entity  *BioEntity
	RelType string
	Source  string
}

// NewEdge creates a trial-to-entity edge tagged with the run's registry.
func NewEdge(trial *Trial, entity *BioEntity, source string) Edge {
	return Edge{
		Trial:   trial,
		Entity:  entity,
		RelType: entity.Kind.RelType(),
		Source:  source,
	}
}

// WarnEmptyCURIE logs nodes that cannot produce a CURIE. Non-fatal: the row
// is still written with an empty identifier.
func WarnEmptyCURIE(log *logger.Logger, n *Node, context string) {
	if n.NS == "" || n.NSID == "" {
		log.Warn("Node has no namespace or ID to produce a CURIE with",
			"context", context, "ns", n.NS, "ns_id", n.NSID)
	}
}
