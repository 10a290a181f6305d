package process

import (
	"fmt"

	"github.com/gyorilab/trialsynth/pkg/common"
)

// aggregation is the pooled state between the fetch and ground phases: the
// deduplicated trial list, the trial index and one explicit bucket per
// entity kind.
type aggregation struct {
	trials        []*common.Trial
	curieToTrial  map[string]*common.Trial
	conditions    []*common.BioEntity
	interventions []*common.BioEntity
}

// aggregate indexes trials by CURIE and drains every trial's entity bag into
// the per-kind buckets. Bags are cleared here and repopulated with grounded
// entities later. Fetched records sharing a CURIE collapse to one trial, the
// last record seen, at the position of the first, so downstream phases emit
// one row per CURIE in a stable order. An entity whose origin is not in the
// index points at a trial that was never fetched, which is a data-integrity
// error.
func aggregate(trials []*common.Trial) (*aggregation, error) {
	agg := &aggregation{
		trials:       make([]*common.Trial, 0, len(trials)),
		curieToTrial: make(map[string]*common.Trial, len(trials)),
	}
	position := make(map[string]int, len(trials))
	for _, trial := range trials {
		curie := trial.CURIE()
		if pos, ok := position[curie]; ok {
			agg.trials[pos] = trial
		} else {
			position[curie] = len(agg.trials)
			agg.trials = append(agg.trials, trial)
		}
		agg.curieToTrial[curie] = trial
	}
	for _, trial := range trials {
		for _, entity := range trial.Entities {
			if _, ok := agg.curieToTrial[entity.Origin]; !ok {
				return nil, fmt.Errorf("entity %q has origin %q not present in the trial index", entity.Text, entity.Origin)
			}
			switch entity.Kind {
			case common.KindCondition:
				agg.conditions = append(agg.conditions, entity)
			case common.KindIntervention:
				agg.interventions = append(agg.interventions, entity)
			default:
				return nil, fmt.Errorf("entity %q has unknown kind %q", entity.Text, entity.Kind)
			}
		}
		trial.Entities = nil
	}
	return agg, nil
}

// groundingContext assembles the free-text context passed to the resolver for
// every entity of a trial.
func groundingContext(trial *common.Trial) string {
	context := trial.Title
	if trial.BriefSummary != "" {
		context += "\n" + trial.BriefSummary
	}
	if trial.DetailedDescription != "" {
		context += "\n" + trial.DetailedDescription
	}
	return context
}
