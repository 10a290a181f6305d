package common

import "strings"

// SecondaryID is an alternate identifier a registry record carries, e.g. a
// grant number or another registry's trial ID.
type SecondaryID struct {
	NS string
	ID string
}

// Registry id-type tokens standardized to canonical identifier namespaces.
// This is deliberately restricted to identifier authorities; ontology terms
// are never standardized through this table.
var secondaryIDAliases = map[string]string{
	"eudract_number": "eudract",
	"eudract":        "eudract",
	"nct":            "clinicaltrials",
	"clinicaltrials": "clinicaltrials",
	"isrctn":         "isrctn",
	"ctri":           "ctri",
	"jprn":           "jprn",
	"umin":           "uminctr",
	"chictr":         "chictr",
	"actrn":          "anzctr",
	"anzctr":         "anzctr",
	"drks":           "drks",
	"ntr":            "ntr",
	"irct":           "irct",
	"nih":            "nih.reporter",
}

// CURIE standardizes the namespace through the identifier-authority table
// and derives the compact identifier. Unknown namespaces pass through
// lower-cased.
func (s SecondaryID) CURIE() string {
	ns := strings.ToLower(strings.TrimSpace(s.NS))
	if canonical, ok := secondaryIDAliases[ns]; ok {
		ns = canonical
	}
	return CURIE(ns, s.ID)
}
