package fetch

import (
	"strings"
	"time"

	"github.com/gyorilab/trialsynth/pkg/common"
)

func (f *Fetcher) parseStudies(studies []Study) []*common.Trial {
	trials := make([]*common.Trial, 0, len(studies))
	for i := range studies {
		trials = append(trials, f.parseStudy(&studies[i]))
	}
	f.log.Info("[fetch] parsed studies", "trials", len(trials))
	return trials
}

// parseStudy converts one API study into a trial with its ungrounded entity
// mentions: free-text conditions, arm interventions with type labels, and the
// registry's pre-grounded MESH browse terms for both kinds.
func (f *Fetcher) parseStudy(study *Study) *common.Trial {
	protocol := &study.ProtocolSection
	derived := &study.DerivedSection

	trial := common.NewTrial("clinicaltrials", protocol.IDModule.NCTID)
	trial.Source = f.registry
	trial.Title = protocol.IDModule.BriefTitle
	trial.OfficialTitle = protocol.IDModule.OfficialTitle
	trial.BriefSummary = protocol.DescriptionModule.BriefSummary
	trial.DetailedDescription = protocol.DescriptionModule.DetailedDescription

	if studyType := strings.TrimSpace(protocol.DesignModule.StudyType); studyType != "" {
		trial.Labels = append(trial.Labels, strings.ToLower(studyType))
	}
	for _, phase := range protocol.DesignModule.Phases {
		if phase = strings.TrimSpace(phase); phase != "" {
			trial.Phases = append(trial.Phases, strings.ToLower(phase))
		}
	}

	status := &protocol.StatusModule
	trial.StartDate, trial.StartDateType = parseDateStruct(status.StartDateStruct)
	trial.CompletionDate, trial.CompletionDateType = parseDateStruct(status.CompletionDateStruct)
	trial.PrimaryCompletionDate, trial.PrimaryCompletionDateType = parseDateStruct(status.PrimaryCompletionDateStruct)
	if date := parseDate(status.LastUpdateSubmitDate); date != nil {
		trial.LastUpdateSubmitDate = date
	}
	trial.OverallStatus = strings.ToLower(strings.TrimSpace(status.OverallStatus))
	trial.WhyStopped = strings.ToLower(strings.TrimSpace(status.WhyStopped))

	design := protocol.DesignModule.DesignInfo
	assignment := design.InterventionModel
	if assignment == "" {
		assignment = design.ObservationalModel
	}
	trial.Design = common.DesignInfo{
		Purpose:    design.PrimaryPurpose,
		Allocation: design.Allocation,
		Masking:    design.MaskingInfo.Masking,
		Assignment: assignment,
	}

	for _, o := range protocol.OutcomesModule.PrimaryOutcomes {
		trial.PrimaryOutcomes = append(trial.PrimaryOutcomes, common.Outcome{Measure: o.Measure, TimeFrame: o.TimeFrame})
	}
	for _, o := range protocol.OutcomesModule.SecondaryOutcomes {
		trial.SecondaryOutcomes = append(trial.SecondaryOutcomes, common.Outcome{Measure: o.Measure, TimeFrame: o.TimeFrame})
	}

	for _, sid := range protocol.IDModule.SecondaryIDs {
		trial.SecondaryIDs = append(trial.SecondaryIDs, common.SecondaryID{NS: sid.Type, ID: sid.ID})
	}
	for _, ref := range protocol.ReferencesModule.References {
		if ref.PMID == "" {
			continue
		}
		trial.References = append(trial.References, common.Reference{PMID: ref.PMID, Type: ref.Type})
	}

	origin := trial.CURIE()
	for _, condition := range protocol.ConditionsModule.Conditions {
		trial.Entities = append(trial.Entities, common.NewCondition(condition, origin, f.registry))
	}
	for _, mesh := range derived.ConditionBrowseModule.Meshes {
		entity := common.NewCondition(mesh.Term, origin, f.registry)
		entity.NS = "MESH"
		entity.NSID = mesh.ID
		trial.Entities = append(trial.Entities, entity)
	}
	for _, arm := range protocol.ArmsInterventionsModule.Interventions {
		if arm.Name == "" {
			continue
		}
		entity := common.NewIntervention(arm.Name, origin, f.registry, arm.Type)
		entity.Description = arm.Description
		trial.Entities = append(trial.Entities, entity)
	}
	for _, mesh := range derived.InterventionBrowseModule.Meshes {
		entity := common.NewIntervention(mesh.Term, origin, f.registry)
		entity.NS = "MESH"
		entity.NSID = mesh.ID
		trial.Entities = append(trial.Entities, entity)
	}

	return trial
}

func parseDateStruct(ds DateStruct) (*time.Time, string) {
	date := parseDate(ds.Date)
	if date == nil {
		return nil, ""
	}
	return date, strings.ToLower(strings.TrimSpace(ds.Type))
}

// parseDate handles the registry's day and month precision date formats.
// Unparseable values are dropped rather than failing the study.
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
