package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func studyJSON(nctID, title string) Study {
	return Study{
		ProtocolSection: ProtocolSection{
			IDModule: IDModule{NCTID: nctID, BriefTitle: title},
		},
	}
}

func TestFetchPaginates(t *testing.T) {
	var requests []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query())
		switch r.URL.Query().Get("pageToken") {
		case "":
			json.NewEncoder(w).Encode(apiResponse{
				Studies:       []Study{studyJSON("NCT00000001", "One"), studyJSON("NCT00000002", "Two")},
				NextPageToken: "page2",
				TotalCount:    3,
			})
		case "page2":
			json.NewEncoder(w).Encode(apiResponse{
				Studies: []Study{studyJSON("NCT00000003", "Three")},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))
	defer srv.Close()

	f := NewFetcher(FetcherParams{BaseURL: srv.URL, PageSize: 2})
	trials, err := f.Fetch(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("got %d trials, want 3", len(trials))
	}
	if trials[2].NSID != "NCT00000003" {
		t.Errorf("last trial = %s", trials[2].NSID)
	}
	if len(requests) != 2 {
		t.Fatalf("made %d requests, want 2", len(requests))
	}
	if requests[0].Get("pageSize") != "2" || requests[0].Get("countTotal") != "true" {
		t.Errorf("first request params: %v", requests[0])
	}
	if requests[0].Get("fields") == "" {
		t.Error("fields parameter missing")
	}
}

func TestFetchMaxPages(t *testing.T) {
	pages := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pages++
		json.NewEncoder(w).Encode(apiResponse{
			Studies:       []Study{studyJSON("NCT1", "x")},
			NextPageToken: "more",
		})
	}))
	defer srv.Close()

	f := NewFetcher(FetcherParams{BaseURL: srv.URL})
	trials, err := f.Fetch(context.Background(), false, 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want 2", pages)
	}
	if len(trials) != 2 {
		t.Errorf("got %d trials, want 2", len(trials))
	}
}

func TestFetchSnapshotReuse(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		json.NewEncoder(w).Encode(apiResponse{Studies: []Study{studyJSON("NCT1", "x")}})
	}))
	defer srv.Close()

	snapshot := filepath.Join(t.TempDir(), "raw", "studies.json.gz")
	params := FetcherParams{BaseURL: srv.URL, SnapshotPath: snapshot}

	first, err := NewFetcher(params).Fetch(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Fatalf("snapshot not written: %v", err)
	}

	second, err := NewFetcher(params).Fetch(context.Background(), false, 0)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
	if len(first) != len(second) || second[0].NSID != "NCT1" {
		t.Errorf("snapshot round trip mismatch: %v vs %v", first, second)
	}

	if _, err := NewFetcher(params).Fetch(context.Background(), true, 0); err != nil {
		t.Fatalf("reload Fetch: %v", err)
	}
	if hits != 2 {
		t.Errorf("reload did not hit the server, hits = %d", hits)
	}
}

func TestFetchNonTimeoutErrorAborts(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherParams{BaseURL: srv.URL, RetryDelay: time.Millisecond})
	if _, err := f.Fetch(context.Background(), false, 0); err == nil {
		t.Fatal("expected error on 502")
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1 (no retry on non-timeout)", hits)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	f := NewFetcher(FetcherParams{BaseURL: "http://127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, false, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTimeout(tt.err); got != tt.want {
				t.Errorf("isTimeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseStudy(t *testing.T) {
	study := Study{
		ProtocolSection: ProtocolSection{
			IDModule: IDModule{
				NCTID:         "NCT00000001",
				BriefTitle:    "A Study of Metformin",
				OfficialTitle: "A Phase 2 Study of Metformin in Type 2 Diabetes",
				SecondaryIDs:  []SecondaryID{{Type: "EudraCT Number", ID: "2004-000099-14"}},
			},
			DescriptionModule: DescriptionModule{
				BriefSummary:        "Short.",
				DetailedDescription: "Long.",
			},
			ConditionsModule: ConditionsModule{Conditions: []string{"Type 2 Diabetes"}},
			DesignModule: DesignModule{
				StudyType: "Interventional",
				Phases:    []string{"PHASE2"},
				DesignInfo: DesignInfo{
					PrimaryPurpose:    "TREATMENT",
					Allocation:        "RANDOMIZED",
					MaskingInfo:       MaskingInfo{Masking: "DOUBLE"},
					InterventionModel: "PARALLEL",
				},
			},
			ArmsInterventionsModule: ArmsInterventionsModule{Interventions: []ArmIntervention{
				{Name: "Metformin", Type: "DRUG", Description: "Daily oral dose"},
				{Name: "", Type: "DRUG"},
			}},
			OutcomesModule: OutcomesModule{
				PrimaryOutcomes: []OutcomeMeasure{{Measure: "HbA1c", TimeFrame: "24 weeks"}},
			},
			StatusModule: StatusModule{
				StartDateStruct:             DateStruct{Date: "2020-03", Type: "ESTIMATED"},
				CompletionDateStruct:        DateStruct{Date: "2023-06-15", Type: "ACTUAL"},
				PrimaryCompletionDateStruct: DateStruct{Date: "2022-06-15", Type: "ACTUAL"},
				LastUpdateSubmitDate:        "2024-01-02",
				OverallStatus:               "COMPLETED",
			},
			ReferencesModule: ReferencesModule{References: []Reference{
				{PMID: "12345", Type: "BACKGROUND"},
				{PMID: "", Type: "DERIVED"},
			}},
		},
		DerivedSection: DerivedSection{
			ConditionBrowseModule: BrowseModule{Meshes: []MeshTerm{
				{Term: "Diabetes Mellitus, Type 2", ID: "D003924"},
			}},
			InterventionBrowseModule: BrowseModule{Meshes: []MeshTerm{
				{Term: "Metformin", ID: "D008687"},
			}},
		},
	}

	f := NewFetcher(FetcherParams{Registry: "clinicaltrials"})
	trial := f.parseStudy(&study)

	if trial.CURIE() != "clinicaltrials:NCT00000001" {
		t.Errorf("curie = %s", trial.CURIE())
	}
	if !trial.HasLabel("clinical_trial") || !trial.HasLabel("interventional") {
		t.Errorf("labels = %v", trial.Labels)
	}
	if len(trial.Phases) != 1 || trial.Phases[0] != "phase2" {
		t.Errorf("phases = %v", trial.Phases)
	}
	if trial.StartDate == nil || trial.StartDate.Year() != 2020 || trial.StartDateType != "estimated" {
		t.Errorf("start date = %v (%s)", trial.StartDate, trial.StartDateType)
	}
	if trial.LastUpdateSubmitDate == nil || trial.LastUpdateSubmitDate.Year() != 2024 {
		t.Errorf("last update = %v", trial.LastUpdateSubmitDate)
	}
	if trial.OverallStatus != "completed" {
		t.Errorf("status = %q", trial.OverallStatus)
	}
	if trial.Design.Assignment != "PARALLEL" {
		t.Errorf("assignment = %q", trial.Design.Assignment)
	}
	if len(trial.SecondaryIDs) != 1 || trial.SecondaryIDs[0].CURIE() != "eudract:2004-000099-14" {
		t.Errorf("secondary ids = %v", trial.SecondaryIDs)
	}
	if len(trial.References) != 1 || trial.References[0].PMID != "12345" {
		t.Errorf("references = %v", trial.References)
	}

	conditions := trial.Conditions()
	interventions := trial.Interventions()
	if len(conditions) != 2 {
		t.Fatalf("got %d conditions, want 2", len(conditions))
	}
	if conditions[0].Text != "Type 2 Diabetes" || conditions[0].NS != "" {
		t.Errorf("free-text condition = %+v", conditions[0])
	}
	if conditions[1].NS != "MESH" || conditions[1].NSID != "D003924" {
		t.Errorf("mesh condition = %+v", conditions[1])
	}
	// the unnamed arm is skipped
	if len(interventions) != 2 {
		t.Fatalf("got %d interventions, want 2", len(interventions))
	}
	if interventions[0].Description != "Daily oral dose" || !interventions[0].HasLabel("DRUG") {
		t.Errorf("arm intervention = %+v", interventions[0])
	}
	for _, e := range trial.Entities {
		if e.Origin != "clinicaltrials:NCT00000001" {
			t.Errorf("entity origin = %q", e.Origin)
		}
	}
}

func TestParseDate(t *testing.T) {
	if d := parseDate("2020-05-17"); d == nil || d.Month() != time.May {
		t.Errorf("day precision parse failed: %v", d)
	}
	if d := parseDate("2020-05"); d == nil || d.Day() != 1 {
		t.Errorf("month precision parse failed: %v", d)
	}
	if d := parseDate("not a date"); d != nil {
		t.Errorf("expected nil for junk, got %v", d)
	}
	if d := parseDate(""); d != nil {
		t.Errorf("expected nil for empty, got %v", d)
	}
}
