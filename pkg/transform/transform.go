// Package transform flattens graph objects into TSV rows for the flat-file
// store. Headers carry neo4j-style type annotations (`name:TYPE`, arrays as
// `TYPE[]`) consumed by the output validator.
package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/pkg/common"
)

// TrialHeaders is the column layout of the trials flat file.
var TrialHeaders = []string{
	"curie:CURIE",
	"title:string",
	"official_title:string",
	"brief_summary:string",
	"detailed_description:string",
	"labels:LABEL[]",
	"design:DESIGN",
	"conditions:CURIE[]",
	"interventions:CURIE[]",
	"primary_outcome:OUTCOME[]",
	"secondary_outcome:OUTCOME[]",
	"secondary_ids:CURIE[]",
	"source_registry:string",
	"phases:PHASE[]",
	"start_year:integer",
	"start_year_anticipated:boolean",
	"primary_completion_year:integer",
	"primary_completion_year_type:string",
	"completion_year:integer",
	"completion_year_type:string",
	"last_update_submit_year:integer",
	"status:string",
	"why_stopped:string",
	"references:string[]",
}

// BioEntityHeaders is the column layout of the bioentities flat file.
var BioEntityHeaders = []string{
	"curie:CURIE",
	"term:string",
	"labels:LABEL[]",
	"source_registry:string",
	"trial:CURIE",
}

// EdgeHeaders is the column layout of the edges flat file.
var EdgeHeaders = []string{
	"from:CURIE",
	"to:CURIE",
	"rel_type:string",
	"source_registry:string",
}

// FlattenTrial renders one trial row in TrialHeaders order.
func FlattenTrial(trial *common.Trial) []string {
	return []string{
		trial.CURIE(),
		util.CollapseWhitespace(trial.Title),
		util.CollapseWhitespace(trial.OfficialTitle),
		util.CollapseWhitespace(trial.BriefSummary),
		util.CollapseWhitespace(trial.DetailedDescription),
		util.JoinList(trial.Labels),
		designString(trial.Design),
		entityCURIEs(trial.Conditions()),
		entityCURIEs(trial.Interventions()),
		outcomeString(trial.PrimaryOutcomes),
		outcomeString(trial.SecondaryOutcomes),
		secondaryIDCURIEs(trial.SecondaryIDs),
		trial.Source,
		phaseString(trial.Phases),
		yearString(trial.StartDate),
		anticipatedString(trial.StartDateType),
		yearString(trial.PrimaryCompletionDate),
		trial.PrimaryCompletionDateType,
		yearString(trial.CompletionDate),
		trial.CompletionDateType,
		yearString(trial.LastUpdateSubmitDate),
		trial.OverallStatus,
		util.CollapseWhitespace(trial.WhyStopped),
		referenceString(trial.References),
	}
}

// FlattenBioEntity renders one grounded entity row in BioEntityHeaders order.
// The trailing trial column is the origin back-reference.
func FlattenBioEntity(entity *common.BioEntity) []string {
	return []string{
		entity.CURIE(),
		entity.GroundedTerm,
		util.JoinList(entity.Labels),
		entity.Source,
		entity.Origin,
	}
}

// FlattenEdge renders one edge row in EdgeHeaders order.
func FlattenEdge(edge common.Edge) []string {
	return []string{
		edge.Trial.CURIE(),
		edge.Entity.CURIE(),
		edge.RelType,
		edge.Source,
	}
}

// DedupeSortRows collapses duplicate rows and sorts what remains by the
// columns at keyCols, in order. Output is deterministic for a fixed input
// set, so repeated runs produce byte-identical files.
func DedupeSortRows(rows [][]string, keyCols ...int) [][]string {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		key := strings.Join(row, "\t")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		for _, col := range keyCols {
			if out[i][col] != out[j][col] {
				return out[i][col] < out[j][col]
			}
		}
		return false
	})
	return out
}

func designString(design common.DesignInfo) string {
	if design.Fallback != "" {
		return design.Fallback
	}
	return fmt.Sprintf("Purpose: %s; Allocation: %s; Masking: %s; Assignment: %s",
		strings.TrimSpace(design.Purpose),
		strings.TrimSpace(design.Allocation),
		strings.TrimSpace(design.Masking),
		strings.TrimSpace(design.Assignment),
	)
}

func outcomeString(outcomes []common.Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		parts = append(parts, fmt.Sprintf("Measure: %s, Time Frame: %s",
			strings.TrimSpace(o.Measure), strings.TrimSpace(o.TimeFrame)))
	}
	return util.JoinList(parts)
}

// entityCURIEs joins the distinct CURIEs of the given entities, sorted so the
// column is stable across runs.
func entityCURIEs(entities []*common.BioEntity) string {
	seen := make(map[string]struct{}, len(entities))
	curies := make([]string, 0, len(entities))
	for _, e := range entities {
		curie := e.CURIE()
		if curie == "" {
			continue
		}
		if _, ok := seen[curie]; ok {
			continue
		}
		seen[curie] = struct{}{}
		curies = append(curies, curie)
	}
	sort.Strings(curies)
	return util.JoinList(curies)
}

func secondaryIDCURIEs(ids []common.SecondaryID) string {
	curies := make([]string, 0, len(ids))
	for _, id := range ids {
		curies = append(curies, id.CURIE())
	}
	return util.JoinList(curies)
}

func phaseString(phases []string) string {
	return util.JoinList(phases)
}

func yearString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.Itoa(t.Year())
}

// anticipatedString renders the start-date type flag: "true" only when the
// registry explicitly marked the start date as anticipated.
func anticipatedString(dateType string) string {
	if strings.EqualFold(dateType, "anticipated") {
		return "true"
	}
	return "false"
}

func referenceString(refs []common.Reference) string {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.PMID == "" {
			continue
		}
		parts = append(parts, "pubmed:"+ref.PMID)
	}
	return util.JoinList(parts)
}
