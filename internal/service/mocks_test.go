package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/events"
	"github.com/slidesmith/slidesmith-api/internal/generation"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProjectStore is an in-memory store.ProjectStore.
type fakeProjectStore struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: make(map[uuid.UUID]*domain.Project)}
}

func (s *fakeProjectStore) Create(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

func (s *fakeProjectStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *fakeProjectStore) Update(_ context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; !ok {
		return store.ErrProjectNotFound
	}
	copied := *project
	s.projects[project.ID] = &copied
	return nil
}

func (s *fakeProjectStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return store.ErrProjectNotFound
	}
	delete(s.projects, id)
	return nil
}

func (s *fakeProjectStore) WithTx(_ *sql.Tx) store.ProjectStore { return s }

// fakePageStore is an in-memory store.PageStore.
type fakePageStore struct {
	mu    sync.Mutex
	pages map[uuid.UUID]*domain.Page
}

func newFakePageStore() *fakePageStore {
	return &fakePageStore{pages: make(map[uuid.UUID]*domain.Page)}
}

func (s *fakePageStore) Create(_ context.Context, page *domain.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *page
	s.pages[page.ID] = &copied
	return nil
}

func (s *fakePageStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[id]
	if !ok {
		return nil, store.ErrPageNotFound
	}
	copied := *page
	return &copied, nil
}

func (s *fakePageStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Page
	for _, page := range s.pages {
		if page.ProjectID == projectID {
			copied := *page
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakePageStore) Update(_ context.Context, page *domain.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page.ID]; !ok {
		return store.ErrPageNotFound
	}
	copied := *page
	s.pages[page.ID] = &copied
	return nil
}

func (s *fakePageStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[id]; !ok {
		return store.ErrPageNotFound
	}
	delete(s.pages, id)
	return nil
}

func (s *fakePageStore) ShiftOrderFrom(_ context.Context, projectID uuid.UUID, orderIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, page := range s.pages {
		if page.ProjectID == projectID && page.OrderIndex >= orderIndex {
			page.OrderIndex++
		}
	}
	return nil
}

func (s *fakePageStore) WithTx(_ *sql.Tx) store.PageStore { return s }

// fakeVersionStore is an in-memory store.ImageVersionStore keeping the
// at-most-one-current invariant.
type fakeVersionStore struct {
	mu       sync.Mutex
	versions map[uuid.UUID]*domain.PageImageVersion
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{versions: make(map[uuid.UUID]*domain.PageImageVersion)}
}

func (s *fakeVersionStore) CreateVersion(_ context.Context, pageID uuid.UUID, imagePath string) (*domain.PageImageVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 1
	for _, v := range s.versions {
		if v.PageID == pageID {
			v.IsCurrent = false
			if v.VersionNumber >= next {
				next = v.VersionNumber + 1
			}
		}
	}
	version := &domain.PageImageVersion{
		ID:            uuid.New(),
		PageID:        pageID,
		ImagePath:     imagePath,
		VersionNumber: next,
		IsCurrent:     true,
		CreatedAt:     time.Now().UTC(),
	}
	s.versions[version.ID] = version
	copied := *version
	return &copied, nil
}

func (s *fakeVersionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.PageImageVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[id]
	if !ok {
		return nil, store.ErrVersionNotFound
	}
	copied := *version
	return &copied, nil
}

func (s *fakeVersionStore) ListByPage(_ context.Context, pageID uuid.UUID) ([]*domain.PageImageVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.PageImageVersion
	for _, v := range s.versions {
		if v.PageID == pageID {
			copied := *v
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeVersionStore) SetCurrent(_ context.Context, versionID uuid.UUID) (*domain.PageImageVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.versions[versionID]
	if !ok {
		return nil, store.ErrVersionNotFound
	}
	for _, v := range s.versions {
		if v.PageID == target.PageID {
			v.IsCurrent = false
		}
	}
	target.IsCurrent = true
	copied := *target
	return &copied, nil
}

// fakeMaterialStore is an in-memory store.MaterialStore.
type fakeMaterialStore struct {
	mu        sync.Mutex
	materials map[uuid.UUID]*domain.Material
}

func newFakeMaterialStore() *fakeMaterialStore {
	return &fakeMaterialStore{materials: make(map[uuid.UUID]*domain.Material)}
}

func (s *fakeMaterialStore) Create(_ context.Context, material *domain.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *material
	s.materials[material.ID] = &copied
	return nil
}

func (s *fakeMaterialStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	material, ok := s.materials[id]
	if !ok {
		return nil, store.ErrMaterialNotFound
	}
	copied := *material
	return &copied, nil
}

func (s *fakeMaterialStore) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.Material
	for _, m := range s.materials {
		if m.ProjectID == projectID {
			copied := *m
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *fakeMaterialStore) Update(_ context.Context, material *domain.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[material.ID]; !ok {
		return store.ErrMaterialNotFound
	}
	copied := *material
	s.materials[material.ID] = &copied
	return nil
}

func (s *fakeMaterialStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[id]; !ok {
		return store.ErrMaterialNotFound
	}
	delete(s.materials, id)
	return nil
}

func (s *fakeMaterialStore) WithTx(_ *sql.Tx) store.MaterialStore { return s }

// fakeReferenceFileStore is an in-memory store.ReferenceFileStore.
type fakeReferenceFileStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]*domain.ReferenceFile
}

func newFakeReferenceFileStore() *fakeReferenceFileStore {
	return &fakeReferenceFileStore{files: make(map[uuid.UUID]*domain.ReferenceFile)}
}

func (s *fakeReferenceFileStore) Create(_ context.Context, file *domain.ReferenceFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *file
	s.files[file.ID] = &copied
	return nil
}

func (s *fakeReferenceFileStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ReferenceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	if !ok {
		return nil, store.ErrReferenceFileNotFound
	}
	copied := *file
	return &copied, nil
}

func (s *fakeReferenceFileStore) ListByProject(_ context.Context, projectID *uuid.UUID) ([]*domain.ReferenceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.ReferenceFile
	for _, f := range s.files {
		switch {
		case projectID == nil && f.ProjectID == nil:
		case projectID != nil && f.ProjectID != nil && *f.ProjectID == *projectID:
		default:
			continue
		}
		copied := *f
		result = append(result, &copied)
	}
	return result, nil
}

func (s *fakeReferenceFileStore) List(_ context.Context) ([]*domain.ReferenceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*domain.ReferenceFile
	for _, f := range s.files {
		copied := *f
		result = append(result, &copied)
	}
	return result, nil
}

func (s *fakeReferenceFileStore) Update(_ context.Context, file *domain.ReferenceFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[file.ID]; !ok {
		return store.ErrReferenceFileNotFound
	}
	copied := *file
	s.files[file.ID] = &copied
	return nil
}

func (s *fakeReferenceFileStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return store.ErrReferenceFileNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *fakeReferenceFileStore) WithTx(_ *sql.Tx) store.ReferenceFileStore { return s }

// fakeTaskStore is an in-memory store.TaskStore used to assert that invalid
// requests never create task rows.
type fakeTaskStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.TaskRecord
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{records: make(map[uuid.UUID]*domain.TaskRecord)}
}

func (s *fakeTaskStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *fakeTaskStore) Create(_ context.Context, record *domain.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *fakeTaskStore) MarkRunning(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Status = domain.TaskStatusRunning
	}
	return nil
}

func (s *fakeTaskStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && !record.IsTerminal() {
		now := time.Now().UTC()
		record.Status = domain.TaskStatusCompleted
		record.CompletedAt = &now
	}
	return nil
}

func (s *fakeTaskStore) MarkFailed(_ context.Context, id uuid.UUID, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok && !record.IsTerminal() {
		now := time.Now().UTC()
		record.Status = domain.TaskStatusFailed
		record.Error = cause
		record.CompletedAt = &now
	}
	return nil
}

func (s *fakeTaskStore) SetProgressTotal(_ context.Context, id uuid.UUID, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Progress.Total = total
	}
	return nil
}

func (s *fakeTaskStore) IncrementProgress(_ context.Context, id uuid.UUID, completedDelta, failedDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[id]; ok {
		record.Progress.Completed += completedDelta
		record.Progress.Failed += failedDelta
	}
	return nil
}

func (s *fakeTaskStore) FailStale(_ context.Context, cause string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now().UTC()
	for _, record := range s.records {
		if !record.IsTerminal() {
			record.Status = domain.TaskStatusFailed
			record.Error = cause
			record.CompletedAt = &now
			n++
		}
	}
	return n, nil
}

func (s *fakeTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// fakeEmitter records emitted events.
type fakeEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *fakeEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *fakeEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

// fakeArtifacts is an in-memory storage.ArtifactStore.
type fakeArtifacts struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{blobs: make(map[string][]byte)}
}

func (a *fakeArtifacts) Save(_ context.Context, projectID, category, filename string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	path := projectID + "/" + category + "/" + filename
	a.blobs[path] = data
	return path, nil
}

func (a *fakeArtifacts) Read(_ context.Context, path string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.blobs[path]
	if !ok {
		return nil, storage.ErrArtifactNotFound
	}
	return data, nil
}

func (a *fakeArtifacts) URLFor(path string) string {
	if path == "" {
		return "http://files.test"
	}
	return "http://files.test/" + path
}

// fakeParser is a controllable generation.DocumentParser. When block is
// non-nil ParseDocument waits on it, letting tests observe the parsing
// state.
type fakeParser struct {
	mu      sync.Mutex
	result  string
	err     error
	block   chan struct{}
	started chan struct{}
}

func (p *fakeParser) setOutcome(markdown string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = markdown
	p.err = err
}

func (p *fakeParser) ParseDocument(_ context.Context, _ string, _ []byte) (*generation.ParseResult, error) {
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &generation.ParseResult{Markdown: p.result}, nil
}
