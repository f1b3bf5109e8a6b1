package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"
	"akiya-radar/internal/scheduler"

	"github.com/google/uuid"
)

type nopLogger struct{}

func (n *nopLogger) Info(msg string, fields port.Fields)             {}
func (n *nopLogger) Warn(msg string, fields port.Fields)             {}
func (n *nopLogger) Error(msg string, err error, fields port.Fields) {}
func (n *nopLogger) Debug(msg string, fields port.Fields)            {}
func (n *nopLogger) WithFields(fields port.Fields) port.LoggerPort   { return n }

type fakeJobStorage struct {
	jobs   map[uuid.UUID]*domain.ScrapeJob
	active map[string]bool
}

func newFakeJobStorage() *fakeJobStorage {
	return &fakeJobStorage{jobs: map[uuid.UUID]*domain.ScrapeJob{}, active: map[string]bool{}}
}

func (f *fakeJobStorage) CreateJob(ctx context.Context, job *domain.ScrapeJob) error {
	copied := *job
	f.jobs[job.ID] = &copied
	f.active[job.Source] = true
	return nil
}

func (f *fakeJobStorage) GetJob(ctx context.Context, id uuid.UUID) (*domain.ScrapeJob, error) {
	if j, ok := f.jobs[id]; ok {
		copied := *j
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeJobStorage) UpdateJobStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus, counters *domain.JobCounters, errorSummary []string) error {
	if j, ok := f.jobs[id]; ok {
		j.Status = status
	}
	return nil
}

func (f *fakeJobStorage) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeJobStorage) HasActiveJob(ctx context.Context, source string) (bool, error) {
	return f.active[source], nil
}

func (f *fakeJobStorage) FindStaleRunning(ctx context.Context, cutoff time.Time) ([]domain.ScrapeJob, error) {
	return nil, nil
}

func (f *fakeJobStorage) ListSources(ctx context.Context) ([]domain.ScrapeSource, error) {
	return []domain.ScrapeSource{
		{ID: uuid.New(), Name: "akiya", Enabled: true, MinIntervalMinutes: 1440},
	}, nil
}

func (f *fakeJobStorage) TouchSourceCompleted(ctx context.Context, name string, at time.Time) error {
	return nil
}

type nopRunner struct{}

func (nopRunner) Execute(ctx context.Context, jobID uuid.UUID) error { return nil }

type fakePropertyStorage struct {
	port.PropertyStoragePort

	properties map[uuid.UUID]*domain.Property
	byBox      []domain.Property
	byMuni     []domain.Property
}

func (f *fakePropertyStorage) GetProperty(ctx context.Context, id uuid.UUID) (*domain.Property, error) {
	if p, ok := f.properties[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (f *fakePropertyStorage) FindByBoundingBox(ctx context.Context, latMin, latMax, lngMin, lngMax float64) ([]domain.Property, error) {
	return f.byBox, nil
}

func (f *fakePropertyStorage) FindByMunicipalitySubstring(ctx context.Context, municipality string, limit int) ([]domain.Property, error) {
	return f.byMuni, nil
}

type fakeHazardStorage struct {
	assessments map[uuid.UUID]*domain.HazardAssessment
}

func (f *fakeHazardStorage) GetAssessment(ctx context.Context, propertyID uuid.UUID) (*domain.HazardAssessment, error) {
	if a, ok := f.assessments[propertyID]; ok {
		return a, nil
	}
	return nil, nil
}

func (f *fakeHazardStorage) UpsertAssessment(ctx context.Context, a *domain.HazardAssessment) error {
	return nil
}

type fakeScoreStorage struct {
	scores map[uuid.UUID]*domain.PropertyScore
}

func (f *fakeScoreStorage) GetScore(ctx context.Context, propertyID uuid.UUID, version string) (*domain.PropertyScore, error) {
	if s, ok := f.scores[propertyID]; ok && s.ScoringVersion == version {
		return s, nil
	}
	return nil, nil
}

func (f *fakeScoreStorage) UpsertScore(ctx context.Context, s *domain.PropertyScore) error {
	return nil
}

func newTestServer(t *testing.T, jobs *fakeJobStorage, props *fakePropertyStorage, hazards *fakeHazardStorage, scores *fakeScoreStorage) *httptest.Server {
	t.Helper()

	manager, err := scheduler.NewManager(jobs, nopRunner{}, nil, 1)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	logger := &nopLogger{}
	server := NewServer("0",
		NewJobHandler(manager, jobs),
		NewPropertyHandler(props, hazards, scores),
		logger)

	ts := httptest.NewServer(server.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestCreateJobAccepted(t *testing.T) {
	jobs := newFakeJobStorage()
	ts := newTestServer(t, jobs, &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	body := bytes.NewBufferString(`{"source":"suumo","prefecture_code":"01"}`)
	resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var job JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Source != "suumo" || job.Status != string(domain.JobStatusPending) {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestCreateJobConflictWhenSourceBusy(t *testing.T) {
	jobs := newFakeJobStorage()
	jobs.active["suumo"] = true
	ts := newTestServer(t, jobs, &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	body := bytes.NewBufferString(`{"source":"suumo"}`)
	resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestCreateJobRequiresSource(t *testing.T) {
	ts := newTestServer(t, newFakeJobStorage(), &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Post(ts.URL+"/api/v1/jobs", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetJobNotFound(t *testing.T) {
	ts := newTestServer(t, newFakeJobStorage(), &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Get(ts.URL + "/api/v1/jobs/" + uuid.New().String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetPropertyDetails(t *testing.T) {
	address := "北海道岩見沢市1条西1丁目1-1"
	price := int64(3500000)
	p := &domain.Property{
		ID:        uuid.New(),
		AddressJa: &address,
		PriceYen:  &price,
		Status:    domain.PropertyStatusActive,
	}
	props := &fakePropertyStorage{properties: map[uuid.UUID]*domain.Property{p.ID: p}}
	ts := newTestServer(t, newFakeJobStorage(), props, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Get(ts.URL + "/api/v1/properties/" + p.ID.String())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var details PropertyDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if details.AddressJa == nil || *details.AddressJa != address {
		t.Errorf("address = %v", details.AddressJa)
	}
	if details.PriceYen == nil || *details.PriceYen != price {
		t.Errorf("price = %v", details.PriceYen)
	}
}

func TestFindPropertiesRequiresFilter(t *testing.T) {
	ts := newTestServer(t, newFakeJobStorage(), &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Get(ts.URL + "/api/v1/properties")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestFindPropertiesByMunicipality(t *testing.T) {
	muni := "岩見沢市"
	props := &fakePropertyStorage{byMuni: []domain.Property{
		{ID: uuid.New(), Municipality: &muni, Status: domain.PropertyStatusActive},
	}}
	ts := newTestServer(t, newFakeJobStorage(), props, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Get(ts.URL + "/api/v1/properties?municipality=" + muni)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var list PropertyListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}
}

func TestFindPropertiesRejectsPartialBoundingBox(t *testing.T) {
	ts := newTestServer(t, newFakeJobStorage(), &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Get(ts.URL + "/api/v1/properties?lat_min=43.0&lat_max=43.5")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetHazardNotFound(t *testing.T) {
	ts := newTestServer(t, newFakeJobStorage(), &fakePropertyStorage{}, &fakeHazardStorage{}, &fakeScoreStorage{})

	resp, err := http.Get(ts.URL + "/api/v1/properties/" + uuid.New().String() + "/hazard")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetScoreDefaultsToCurrentVersion(t *testing.T) {
	propertyID := uuid.New()
	scores := &fakeScoreStorage{scores: map[uuid.UUID]*domain.PropertyScore{
		propertyID: {
			ID:             uuid.New(),
			PropertyID:     propertyID,
			ScoringVersion: "1.0",
			CompositeScore: 71.5,
		},
	}}
	ts := newTestServer(t, newFakeJobStorage(), &fakePropertyStorage{}, &fakeHazardStorage{}, scores)

	resp, err := http.Get(ts.URL + "/api/v1/properties/" + propertyID.String() + "/score")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var score ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&score); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if score.CompositeScore != 71.5 {
		t.Errorf("composite = %v", score.CompositeScore)
	}
}
