package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"akiya-radar/internal/core/domain"
	"akiya-radar/internal/core/port"

	"github.com/google/uuid"
)

// fakePropertyStorage is an in-memory PropertyStoragePort used across the
// use case tests. Call counters let tests assert which dedup tiers ran.
type fakePropertyStorage struct {
	mu         sync.Mutex
	properties map[uuid.UUID]*domain.Property
	listings   map[string]*domain.Listing // key: source + "/" + sourceID
	images     map[uuid.UUID][]string

	exactCalls   int
	fuzzyCalls   int
	spatialCalls int
}

func newFakePropertyStorage() *fakePropertyStorage {
	return &fakePropertyStorage{
		properties: map[uuid.UUID]*domain.Property{},
		listings:   map[string]*domain.Listing{},
		images:     map[uuid.UUID][]string{},
	}
}

func (f *fakePropertyStorage) GetProperty(_ context.Context, id uuid.UUID) (*domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.properties[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePropertyStorage) FindByNormalizedAddress(_ context.Context, normalized string) (*domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exactCalls++
	for _, p := range f.properties {
		if p.AddressNormalized != nil && *p.AddressNormalized == normalized {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakePropertyStorage) FindByMunicipalitySubstring(_ context.Context, municipality string, limit int) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fuzzyCalls++
	var out []domain.Property
	for _, p := range f.properties {
		if p.AddressJa != nil && strings.Contains(*p.AddressJa, municipality) {
			out = append(out, *p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePropertyStorage) FindByBoundingBox(_ context.Context, latMin, latMax, lngMin, lngMax float64) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spatialCalls++
	var out []domain.Property
	for _, p := range f.properties {
		if p.Latitude == nil || p.Longitude == nil {
			continue
		}
		if *p.Latitude >= latMin && *p.Latitude <= latMax && *p.Longitude >= lngMin && *p.Longitude <= lngMax {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePropertyStorage) CreateProperty(_ context.Context, p *domain.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.properties[p.ID] = &cp
	return nil
}

func (f *fakePropertyStorage) UpdateProperty(_ context.Context, p *domain.Property) error {
	return f.CreateProperty(context.Background(), p)
}

func (f *fakePropertyStorage) FindListing(_ context.Context, source, sourceID string) (*domain.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.listings[source+"/"+sourceID]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePropertyStorage) SaveListing(_ context.Context, l *domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.listings[l.Source+"/"+l.SourceID] = &cp
	return nil
}

func (f *fakePropertyStorage) ReplaceImages(_ context.Context, listingID uuid.UUID, urls []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[listingID] = append([]string(nil), urls...)
	return nil
}

func (f *fakePropertyStorage) WithPropertyLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakePropertyStorage) FindUnassessed(_ context.Context, limit int) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Property
	for _, p := range f.properties {
		if p.Latitude != nil && p.Longitude != nil {
			out = append(out, *p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakePropertyStorage) FindUnscored(_ context.Context, _ string, limit int) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Property
	for _, p := range f.properties {
		out = append(out, *p)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeHazardStorage struct {
	mu          sync.Mutex
	assessments map[uuid.UUID]*domain.HazardAssessment
}

func newFakeHazardStorage() *fakeHazardStorage {
	return &fakeHazardStorage{assessments: map[uuid.UUID]*domain.HazardAssessment{}}
}

func (f *fakeHazardStorage) GetAssessment(_ context.Context, propertyID uuid.UUID) (*domain.HazardAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assessments[propertyID]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeHazardStorage) UpsertAssessment(_ context.Context, a *domain.HazardAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.assessments[a.PropertyID] = &cp
	return nil
}

type fakeScoreStorage struct {
	mu     sync.Mutex
	scores map[string]*domain.PropertyScore // key: propertyID + "/" + version
}

func newFakeScoreStorage() *fakeScoreStorage {
	return &fakeScoreStorage{scores: map[string]*domain.PropertyScore{}}
}

func (f *fakeScoreStorage) GetScore(_ context.Context, propertyID uuid.UUID, version string) (*domain.PropertyScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.scores[propertyID.String()+"/"+version]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeScoreStorage) UpsertScore(_ context.Context, s *domain.PropertyScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.scores[s.PropertyID.String()+"/"+s.ScoringVersion] = &cp
	return nil
}

type fakeJobStorage struct {
	mu         sync.Mutex
	jobs       map[uuid.UUID]*domain.ScrapeJob
	sources    map[string]*domain.ScrapeSource
	heartbeats int
	statusLog  []domain.JobStatus
}

func newFakeJobStorage() *fakeJobStorage {
	return &fakeJobStorage{
		jobs:    map[uuid.UUID]*domain.ScrapeJob{},
		sources: map[string]*domain.ScrapeSource{},
	}
}

func (f *fakeJobStorage) CreateJob(_ context.Context, job *domain.ScrapeJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStorage) GetJob(_ context.Context, id uuid.UUID) (*domain.ScrapeJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeJobStorage) UpdateJobStatus(_ context.Context, id uuid.UUID, status domain.JobStatus, counters *domain.JobCounters, errorSummary []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil
	}
	j.Status = status
	j.ErrorSummary = errorSummary
	if counters != nil {
		j.ListingsFound = counters.Found
		j.ListingsNew = counters.New
		j.ListingsUpdated = counters.Updated
	}
	f.statusLog = append(f.statusLog, status)
	return nil
}

func (f *fakeJobStorage) Heartbeat(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats++
	if j, ok := f.jobs[id]; ok {
		j.HeartbeatAt = &at
	}
	return nil
}

func (f *fakeJobStorage) HasActiveJob(_ context.Context, source string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.Source == source && (j.Status == domain.JobStatusPending || j.Status == domain.JobStatusRunning) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeJobStorage) FindStaleRunning(_ context.Context, cutoff time.Time) ([]domain.ScrapeJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ScrapeJob
	for _, j := range f.jobs {
		if j.Status == domain.JobStatusRunning && j.HeartbeatAt != nil && j.HeartbeatAt.Before(cutoff) {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobStorage) ListSources(_ context.Context) ([]domain.ScrapeSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ScrapeSource
	for _, s := range f.sources {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeJobStorage) TouchSourceCompleted(_ context.Context, name string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sources[name]; ok {
		s.LastCompletedAt = &at
	}
	return nil
}

// fakeScraper returns canned search results and detail pages.
type fakeScraper struct {
	name       string
	searchOut  []domain.RawListing
	detailOut  map[string]*domain.RawListing
	detailErr  map[string]error
	detailHits int
}

func (f *fakeScraper) Name() string              { return f.name }
func (f *fakeScraper) CrawlDelay() time.Duration { return time.Millisecond }

func (f *fakeScraper) Search(_ context.Context, _ domain.SearchParams) ([]domain.RawListing, error) {
	return f.searchOut, nil
}

func (f *fakeScraper) FetchDetail(_ context.Context, url string) (*domain.RawListing, error) {
	f.detailHits++
	if err, ok := f.detailErr[url]; ok {
		return nil, err
	}
	return f.detailOut[url], nil
}

var _ port.PropertyStoragePort = (*fakePropertyStorage)(nil)
var _ port.HazardStoragePort = (*fakeHazardStorage)(nil)
var _ port.ScoreStoragePort = (*fakeScoreStorage)(nil)
var _ port.ScraperPort = (*fakeScraper)(nil)
var _ port.JobStoragePort = (*fakeJobStorage)(nil)
