package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/generation"
	"github.com/slidesmith/slidesmith-api/internal/storage"
	"github.com/slidesmith/slidesmith-api/internal/store"
	"github.com/stretchr/testify/require"
)

// testPNG returns a minimal valid PNG for pipelines that sniff content.
func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// memArtifacts is an in-memory storage.ArtifactStore.
type memArtifacts struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{files: make(map[string][]byte)}
}

func (s *memArtifacts) Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := projectID + "/" + category + "/" + filename
	s.files[path] = data
	return path, nil
}

func (s *memArtifacts) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[strings.TrimLeft(path, "/")]
	if !ok {
		return nil, storage.ErrArtifactNotFound
	}
	return data, nil
}

// URLFor follows the storage.ArtifactStore contract: an empty path yields
// the bare base prefix.
func (s *memArtifacts) URLFor(path string) string {
	if path == "" {
		return "/files"
	}
	return "/files/" + strings.TrimLeft(path, "/")
}

func (s *memArtifacts) savedUnder(category string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for path, data := range s.files {
		if strings.Contains(path, "/"+category+"/") {
			out = append(out, data)
		}
	}
	return out
}

// stubGenerator scripts ImageGenerator responses.
type stubGenerator struct {
	mu        sync.Mutex
	generated []generation.ImageRequest
	edited    []generation.EditRequest

	generateResult *generation.Image
	generateErr    error

	// editErrOn fails EditImage for the given call numbers (1-based).
	editErrOn map[int]bool
	editCalls int
}

func (g *stubGenerator) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.generated = append(g.generated, req)
	if g.generateErr != nil {
		return nil, g.generateErr
	}
	return g.generateResult, nil
}

func (g *stubGenerator) EditImage(ctx context.Context, req generation.EditRequest) (*generation.Image, error) {
	g.mu.Lock()
	g.edited = append(g.edited, req)
	g.editCalls++
	call := g.editCalls
	g.mu.Unlock()
	if g.editErrOn[call] {
		return nil, generation.ErrGenerationFailed
	}
	return &generation.Image{Data: req.BaseImage, MIMEType: "image/png"}, nil
}

// stubParser scripts DocumentParser responses.
type stubParser struct {
	result *generation.ParseResult
	err    error
	gotPDF []byte
}

func (p *stubParser) ParseDocument(ctx context.Context, filename string, data []byte) (*generation.ParseResult, error) {
	p.gotPDF = data
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

// memStores bundles in-memory store fakes behind the store interfaces.
type memStores struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*domain.Project
	pages    map[uuid.UUID]*domain.Page
	material map[uuid.UUID]*domain.Material
	versions []*domain.PageImageVersion
	progress map[uuid.UUID]*domain.Progress
}

func newMemStores() *memStores {
	return &memStores{
		projects: make(map[uuid.UUID]*domain.Project),
		pages:    make(map[uuid.UUID]*domain.Page),
		material: make(map[uuid.UUID]*domain.Material),
		progress: make(map[uuid.UUID]*domain.Progress),
	}
}

// --- store.ProjectStore ---

func (m *memStores) Create(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = project
	return nil
}

func (m *memStores) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return project, nil
}

func (m *memStores) Update(ctx context.Context, project *domain.Project) error { return nil }
func (m *memStores) Delete(ctx context.Context, id uuid.UUID) error            { return nil }
func (m *memStores) WithTx(tx *sql.Tx) store.ProjectStore                      { return m }

// pageStore adapts memStores to store.PageStore.
type pageStore struct{ *memStores }

func (m pageStore) Create(ctx context.Context, page *domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.ID] = page
	return nil
}

func (m pageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[id]
	if !ok {
		return nil, store.ErrPageNotFound
	}
	return page, nil
}

func (m pageStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pages []*domain.Page
	for _, page := range m.pages {
		if page.ProjectID == projectID {
			pages = append(pages, page)
		}
	}
	for i := 0; i < len(pages); i++ {
		for j := i + 1; j < len(pages); j++ {
			if pages[j].OrderIndex < pages[i].OrderIndex {
				pages[i], pages[j] = pages[j], pages[i]
			}
		}
	}
	return pages, nil
}

func (m pageStore) Update(ctx context.Context, page *domain.Page) error { return nil }
func (m pageStore) Delete(ctx context.Context, id uuid.UUID) error      { return nil }
func (m pageStore) ShiftOrderFrom(ctx context.Context, projectID uuid.UUID, orderIndex int) error {
	return nil
}
func (m pageStore) WithTx(tx *sql.Tx) store.PageStore { return m }

// versionStore adapts memStores to store.ImageVersionStore.
type versionStore struct{ *memStores }

func (m versionStore) CreateVersion(ctx context.Context, pageID uuid.UUID, imagePath string) (*domain.PageImageVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	number := 1
	for _, v := range m.versions {
		if v.PageID == pageID {
			v.IsCurrent = false
			number++
		}
	}
	version := &domain.PageImageVersion{
		ID:            uuid.New(),
		PageID:        pageID,
		ImagePath:     imagePath,
		VersionNumber: number,
		IsCurrent:     true,
		CreatedAt:     time.Now().UTC(),
	}
	m.versions = append(m.versions, version)
	if page, ok := m.pages[pageID]; ok {
		page.GeneratedImagePath = imagePath
		page.Status = domain.PageStatusImageGenerated
	}
	return version, nil
}

func (m versionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PageImageVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, store.ErrVersionNotFound
}

func (m versionStore) ListByPage(ctx context.Context, pageID uuid.UUID) ([]*domain.PageImageVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PageImageVersion
	for i := len(m.versions) - 1; i >= 0; i-- {
		if m.versions[i].PageID == pageID {
			out = append(out, m.versions[i])
		}
	}
	return out, nil
}

func (m versionStore) SetCurrent(ctx context.Context, versionID uuid.UUID) (*domain.PageImageVersion, error) {
	return nil, fmt.Errorf("not implemented")
}

// materialStore adapts memStores to store.MaterialStore.
type materialStore struct{ *memStores }

func (m materialStore) Create(ctx context.Context, material *domain.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.material[material.ID] = material
	return nil
}

func (m materialStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	material, ok := m.material[id]
	if !ok {
		return nil, store.ErrMaterialNotFound
	}
	return material, nil
}

func (m materialStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Material, error) {
	return nil, nil
}

func (m materialStore) Update(ctx context.Context, material *domain.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.material[material.ID] = material
	return nil
}

func (m materialStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (m materialStore) WithTx(tx *sql.Tx) store.MaterialStore          { return m }

// progressStore adapts memStores to store.TaskStore, tracking only progress.
type progressStore struct{ *memStores }

func (m progressStore) Create(ctx context.Context, record *domain.TaskRecord) error { return nil }
func (m progressStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	return nil, store.ErrTaskNotFound
}
func (m progressStore) MarkRunning(ctx context.Context, id uuid.UUID) error              { return nil }
func (m progressStore) MarkCompleted(ctx context.Context, id uuid.UUID) error            { return nil }
func (m progressStore) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error { return nil }

func (m progressStore) SetProgressTotal(ctx context.Context, id uuid.UUID, total int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressFor(id).Total = total
	return nil
}

func (m progressStore) IncrementProgress(ctx context.Context, id uuid.UUID, completedDelta, failedDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.progressFor(id)
	p.Completed += completedDelta
	p.Failed += failedDelta
	return nil
}

func (m progressStore) FailStale(ctx context.Context, cause string) (int64, error) { return 0, nil }
func (m progressStore) WithTx(tx *sql.Tx) store.TaskStore                          { return m }

func (m *memStores) progressFor(id uuid.UUID) *domain.Progress {
	if _, ok := m.progress[id]; !ok {
		m.progress[id] = &domain.Progress{}
	}
	return m.progress[id]
}
