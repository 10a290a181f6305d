package fetch

// Response models for the ClinicalTrials.gov v2 study API. Only the modules
// the pipeline consumes are declared; unknown fields are ignored on decode.
// See https://clinicaltrials.gov/data-api/about-api/study-data-structure.

type apiResponse struct {
	Studies       []Study `json:"studies"`
	NextPageToken string  `json:"nextPageToken"`
	TotalCount    int     `json:"totalCount"`
}

// Study is one unflattened trial record from the API.
type Study struct {
	ProtocolSection ProtocolSection `json:"protocolSection"`
	DerivedSection  DerivedSection  `json:"derivedSection"`
}

type ProtocolSection struct {
	IDModule                IDModule                `json:"identificationModule"`
	DescriptionModule       DescriptionModule       `json:"descriptionModule"`
	ConditionsModule        ConditionsModule        `json:"conditionsModule"`
	DesignModule            DesignModule            `json:"designModule"`
	ArmsInterventionsModule ArmsInterventionsModule `json:"armsInterventionsModule"`
	OutcomesModule          OutcomesModule          `json:"outcomesModule"`
	StatusModule            StatusModule            `json:"statusModule"`
	ReferencesModule        ReferencesModule        `json:"referencesModule"`
}

type DerivedSection struct {
	ConditionBrowseModule    BrowseModule `json:"conditionBrowseModule"`
	InterventionBrowseModule BrowseModule `json:"interventionBrowseModule"`
}

type IDModule struct {
	NCTID         string        `json:"nctId"`
	BriefTitle    string        `json:"briefTitle"`
	OfficialTitle string        `json:"officialTitle"`
	SecondaryIDs  []SecondaryID `json:"secondaryIds"`
}

type SecondaryID struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type DescriptionModule struct {
	BriefSummary        string `json:"briefSummary"`
	DetailedDescription string `json:"detailedDescription"`
}

type ConditionsModule struct {
	Conditions []string `json:"conditions"`
}

type DesignModule struct {
	StudyType  string     `json:"studyType"`
	DesignInfo DesignInfo `json:"designInfo"`
	Phases     []string   `json:"phases"`
}

type DesignInfo struct {
	PrimaryPurpose     string      `json:"primaryPurpose"`
	Allocation         string      `json:"allocation"`
	MaskingInfo        MaskingInfo `json:"maskingInfo"`
	InterventionModel  string      `json:"interventionModel"`
	ObservationalModel string      `json:"observationalModel"`
}

type MaskingInfo struct {
	Masking string `json:"masking"`
}

type ArmsInterventionsModule struct {
	Interventions []ArmIntervention `json:"interventions"`
}

type ArmIntervention struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type OutcomesModule struct {
	PrimaryOutcomes   []OutcomeMeasure `json:"primaryOutcomes"`
	SecondaryOutcomes []OutcomeMeasure `json:"secondaryOutcomes"`
}

type OutcomeMeasure struct {
	Measure   string `json:"measure"`
	TimeFrame string `json:"timeFrame"`
}

type StatusModule struct {
	StartDateStruct             DateStruct `json:"startDateStruct"`
	PrimaryCompletionDateStruct DateStruct `json:"primaryCompletionDateStruct"`
	CompletionDateStruct        DateStruct `json:"completionDateStruct"`
	LastUpdateSubmitDate        string     `json:"lastUpdateSubmitDate"`
	OverallStatus               string     `json:"overallStatus"`
	WhyStopped                  string     `json:"whyStopped"`
}

// DateStruct is a registry date plus its ACTUAL/ESTIMATED type flag. Dates
// arrive as "2006-01-02" or month precision "2006-01".
type DateStruct struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

type ReferencesModule struct {
	References []Reference `json:"references"`
}

type Reference struct {
	PMID     string `json:"pmid"`
	Type     string `json:"type"`
	Citation string `json:"citation"`
}

type BrowseModule struct {
	Meshes []MeshTerm `json:"meshes"`
}

type MeshTerm struct {
	Term string `json:"term"`
	ID   string `json:"id"`
}
