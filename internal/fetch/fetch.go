// Package fetch pulls trial records from the ClinicalTrials.gov v2 REST API,
// pages through the full registry and parses each study into the graph model.
// A raw gzip JSON snapshot of every fetched study is kept on disk so reruns
// skip the network entirely unless a reload is forced.
package fetch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/pkg/common"
	"github.com/gyorilab/trialsynth/pkg/logger"
)

const (
	defaultBaseURL  = "https://clinicaltrials.gov/api/v2/studies"
	defaultPageSize = 1000
	defaultTimeout  = 300 * time.Second
	defaultRetries  = 3
	defaultDelay    = 5 * time.Second
)

// defaultFields is the column list requested from the API, covering every
// module the parser reads.
var defaultFields = []string{
	"IdentificationModule",
	"DescriptionModule",
	"ConditionsModule",
	"DesignModule",
	"ArmsInterventionsModule",
	"OutcomesModule",
	"StatusModule",
	"ReferencesModule",
	"ConditionBrowseModule",
	"InterventionBrowseModule",
}

// Fetcher downloads and parses ClinicalTrials.gov studies.
type Fetcher struct {
	baseURL      string
	fields       []string
	pageSize     int
	timeout      time.Duration
	retries      int
	retryDelay   time.Duration
	snapshotPath string
	registry     string

	httpClient *http.Client
	log        *logger.Logger
}

// FetcherParams contains configuration options for creating a Fetcher.
type FetcherParams struct {
	BaseURL      string
	Fields       []string
	PageSize     int
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	SnapshotPath string
	// Registry tags every produced trial and entity, e.g. "clinicaltrials".
	Registry string

	Log *logger.Logger
}

// NewFetcher creates a fetcher for the registry API.
func NewFetcher(params FetcherParams) *Fetcher {
	f := &Fetcher{
		baseURL:      params.BaseURL,
		fields:       params.Fields,
		pageSize:     params.PageSize,
		timeout:      params.Timeout,
		retries:      params.Retries,
		retryDelay:   params.RetryDelay,
		snapshotPath: params.SnapshotPath,
		registry:     params.Registry,
		log:          params.Log,
	}
	if f.baseURL == "" {
		f.baseURL = defaultBaseURL
	}
	if len(f.fields) == 0 {
		f.fields = defaultFields
	}
	if f.pageSize <= 0 {
		f.pageSize = defaultPageSize
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.retries <= 0 {
		f.retries = defaultRetries
	}
	if f.retryDelay <= 0 {
		f.retryDelay = defaultDelay
	}
	if f.registry == "" {
		f.registry = "clinicaltrials"
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	f.httpClient = &http.Client{Timeout: f.timeout}
	return f
}

// SnapshotPath returns where the raw snapshot is kept on disk.
func (f *Fetcher) SnapshotPath() string { return f.snapshotPath }

// Fetch returns all parsed trials. With a snapshot on disk and reload false
// the API is never contacted. maxPages <= 0 means no cap. The context is
// checked between pages, so cancellation takes effect at a page boundary.
func (f *Fetcher) Fetch(ctx context.Context, reload bool, maxPages int) ([]*common.Trial, error) {
	if f.snapshotPath != "" && !reload {
		if _, err := os.Stat(f.snapshotPath); err == nil {
			return f.loadSnapshot()
		}
	}

	f.log.Info("[fetch] downloading registry data", "url", f.baseURL, "page_size", f.pageSize)

	var studies []Study
	pageToken := ""
	page := 0
	totalCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := f.fetchPage(ctx, pageToken)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page+1, err)
		}
		studies = append(studies, resp.Studies...)
		page++
		if resp.TotalCount > 0 {
			totalCount = resp.TotalCount
		}
		f.log.Info("[fetch] page complete",
			"page", page,
			"studies", len(studies),
			"total", totalCount,
		)

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
		if maxPages > 0 && page >= maxPages {
			f.log.Info("[fetch] stopping at page cap", "max_pages", maxPages)
			break
		}
	}

	if f.snapshotPath != "" {
		if err := f.saveSnapshot(studies); err != nil {
			return nil, err
		}
	}
	return f.parseStudies(studies), nil
}

// fetchPage retrieves one page, retrying only timeouts. Any other failure,
// including an HTTP error status, aborts the run immediately.
func (f *Fetcher) fetchPage(ctx context.Context, pageToken string) (*apiResponse, error) {
	return util.RetryIfWithDelay(ctx, f.retries, f.retryDelay,
		func(err error) bool {
			if !isTimeout(err) {
				return false
			}
			f.log.Warn("[fetch] request timed out, retrying", "timeout", f.timeout, "delay", f.retryDelay)
			return true
		},
		func(ctx context.Context) (*apiResponse, error) {
			return f.requestPage(ctx, pageToken)
		},
	)
}

func (f *Fetcher) requestPage(ctx context.Context, pageToken string) (*apiResponse, error) {
	query := url.Values{}
	query.Set("fields", strings.Join(f.fields, ","))
	query.Set("pageSize", strconv.Itoa(f.pageSize))
	query.Set("countTotal", "true")
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var page apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &page, nil
}

// isTimeout reports whether err is a network timeout. Cancellation is not a
// timeout and must abort instead of retrying.
func isTimeout(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err)
}

func (f *Fetcher) saveSnapshot(studies []Study) error {
	if err := os.MkdirAll(filepath.Dir(f.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.snapshotPath), filepath.Base(f.snapshotPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	gz := gzip.NewWriter(tmp)
	if err := json.NewEncoder(gz).Encode(studies); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.snapshotPath); err != nil {
		return fmt.Errorf("promote snapshot: %w", err)
	}
	f.log.Info("[fetch] saved raw snapshot", "path", f.snapshotPath, "studies", len(studies))
	return nil
}

func (f *Fetcher) loadSnapshot() ([]*common.Trial, error) {
	f.log.Info("[fetch] loading raw snapshot", "path", f.snapshotPath)

	file, err := os.Open(f.snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", f.snapshotPath, err)
	}
	defer gz.Close()

	var studies []Study
	if err := json.NewDecoder(gz).Decode(&studies); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", f.snapshotPath, err)
	}
	return f.parseStudies(studies), nil
}
