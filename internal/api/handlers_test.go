package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/slidesmith/slidesmith-api/internal/domain"
	"github.com/slidesmith/slidesmith-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingTask(t *testing.T, kind domain.TaskKind) *domain.TaskRecord {
	t.Helper()
	record, err := domain.NewTaskRecord(uuid.New(), kind, 1)
	require.NoError(t, err)
	return record
}

// stubPageService returns canned values for the endpoints under test.
type stubPageService struct {
	service.PageService

	record *domain.TaskRecord
	err    error
}

func (s *stubPageService) GeneratePageImage(_ context.Context, _, _ uuid.UUID, _ service.GenerateImageOptions) (*domain.TaskRecord, error) {
	return s.record, s.err
}

func (s *stubPageService) EditPageImage(_ context.Context, _, _ uuid.UUID, _ service.EditImageRequest) (*domain.TaskRecord, error) {
	return s.record, s.err
}

type stubTaskService struct {
	record *domain.TaskRecord
	err    error
}

func (s *stubTaskService) GetTask(_ context.Context, _ uuid.UUID) (*domain.TaskRecord, error) {
	return s.record, s.err
}

type stubExportService struct {
	service.ExportService

	record *domain.TaskRecord
	result *service.ExportResult
	err    error
}

func (s *stubExportService) CreateEditableExport(_ context.Context, _ uuid.UUID) (*domain.TaskRecord, error) {
	return s.record, s.err
}

func (s *stubExportService) ExportPDF(_ context.Context, _ uuid.UUID) (*service.ExportResult, error) {
	return s.result, s.err
}

func pageRouter(h *PageHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/projects/{projectID}/pages/{pageID}/image", h.GenerateImage)
	r.Post("/projects/{projectID}/pages/{pageID}/image/edits", h.EditImage)
	return r
}

func TestGenerateImageReturnsAccepted(t *testing.T) {
	t.Parallel()

	record := pendingTask(t, domain.TaskKindGeneratePageImage)
	handler := NewPageHandler(&stubPageService{record: record}, testLogger())

	url := fmt.Sprintf("/projects/%s/pages/%s/image", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(`{"use_template":true}`))
	rec := httptest.NewRecorder()
	pageRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp TaskAcceptedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, record.ID, resp.TaskID)
}

func TestGenerateImageMapsPreconditionTo422(t *testing.T) {
	t.Parallel()

	handler := NewPageHandler(&stubPageService{err: service.ErrPageNotReady}, testLogger())

	url := fmt.Sprintf("/projects/%s/pages/%s/image", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	pageRouter(handler).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp["error"], "description")
}

func TestGenerateImageRejectsBadProjectID(t *testing.T) {
	t.Parallel()

	handler := NewPageHandler(&stubPageService{}, testLogger())

	url := fmt.Sprintf("/projects/not-a-uuid/pages/%s/image", uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	pageRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditImageRequiresInstruction(t *testing.T) {
	t.Parallel()

	handler := NewPageHandler(&stubPageService{}, testLogger())

	url := fmt.Sprintf("/projects/%s/pages/%s/image/edits", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(`{"instruction":""}`))
	rec := httptest.NewRecorder()
	pageRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditImageMapsMissingImageTo422(t *testing.T) {
	t.Parallel()

	handler := NewPageHandler(&stubPageService{err: service.ErrPageImageMissing}, testLogger())

	url := fmt.Sprintf("/projects/%s/pages/%s/image/edits", uuid.New(), uuid.New())
	req := httptest.NewRequest(http.MethodPost, url,
		bytes.NewBufferString(`{"instruction":"brighten the sky"}`))
	rec := httptest.NewRecorder()
	pageRouter(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetTaskReturnsProgress(t *testing.T) {
	t.Parallel()

	record := pendingTask(t, domain.TaskKindExportEditableDeck)
	record.Status = domain.TaskStatusRunning
	record.Progress = domain.Progress{Total: 5, Completed: 3, Failed: 2}
	handler := NewTaskHandler(&stubTaskService{record: record}, testLogger())

	r := chi.NewRouter()
	r.Get("/tasks/{taskID}", handler.GetTask)

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+record.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, record.ID, resp.TaskID)
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, domain.Progress{Total: 5, Completed: 3, Failed: 2}, resp.Progress)
	assert.Nil(t, resp.CompletedAt)
}

func TestGetTaskNotFound(t *testing.T) {
	t.Parallel()

	handler := NewTaskHandler(&stubTaskService{err: service.ErrTaskNotFound}, testLogger())

	r := chi.NewRouter()
	r.Get("/tasks/{taskID}", handler.GetTask)

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTaskExposesCompletedAt(t *testing.T) {
	t.Parallel()

	record := pendingTask(t, domain.TaskKindGeneratePageImage)
	now := time.Now().UTC()
	record.Status = domain.TaskStatusFailed
	record.Error = "image provider unavailable"
	record.CompletedAt = &now
	handler := NewTaskHandler(&stubTaskService{record: record}, testLogger())

	r := chi.NewRouter()
	r.Get("/tasks/{taskID}", handler.GetTask)

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+record.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "image provider unavailable", resp.Error)
	require.NotNil(t, resp.CompletedAt)
}

func TestExportEditableMapsNoImagesTo422(t *testing.T) {
	t.Parallel()

	handler := NewExportHandler(&stubExportService{err: service.ErrNoGeneratedImages}, testLogger())

	r := chi.NewRouter()
	r.Post("/projects/{projectID}/exports/editable", handler.ExportEditable)

	url := fmt.Sprintf("/projects/%s/exports/editable", uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExportPDFReturnsArtifactLocation(t *testing.T) {
	t.Parallel()

	result := &service.ExportResult{Path: "p/exports/deck.pdf", URL: "http://files.test/p/exports/deck.pdf"}
	handler := NewExportHandler(&stubExportService{result: result}, testLogger())

	r := chi.NewRouter()
	r.Post("/projects/{projectID}/exports/pdf", handler.ExportPDF)

	url := fmt.Sprintf("/projects/%s/exports/pdf", uuid.New())
	req := httptest.NewRequest(http.MethodPost, url, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp service.ExportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, *result, resp)
}

// stubReferenceService covers the upload path.
type stubReferenceService struct {
	service.ReferenceFileService

	file *domain.ReferenceFile
	err  error
}

func (s *stubReferenceService) UploadReferenceFile(_ context.Context, projectID *uuid.UUID, filename string, _ []byte) (*domain.ReferenceFile, error) {
	if s.err != nil {
		return nil, s.err
	}
	file, err := domain.NewReferenceFile(projectID, filename, "stored/"+filename)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func multipartUpload(t *testing.T, field, filename string, contents []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(contents)
	require.NoError(t, err)
	for k, v := range extra {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadReferenceFile(t *testing.T) {
	t.Parallel()

	handler := NewReferenceFileHandler(&stubReferenceService{}, testLogger())

	r := chi.NewRouter()
	r.Post("/reference-files", handler.Upload)

	projectID := uuid.New()
	body, contentType := multipartUpload(t, "file", "handbook.pdf", []byte("%PDF-1.4"),
		map[string]string{"project_id": projectID.String()})

	req := httptest.NewRequest(http.MethodPost, "/reference-files", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.ReferenceFile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "handbook.pdf", resp.Filename)
	require.NotNil(t, resp.ProjectID)
	assert.Equal(t, projectID, *resp.ProjectID)
	assert.Equal(t, domain.ParseStatusPending, resp.ParseStatus)
}

func TestUploadReferenceFileWithoutFileField(t *testing.T) {
	t.Parallel()

	handler := NewReferenceFileHandler(&stubReferenceService{}, testLogger())

	r := chi.NewRouter()
	r.Post("/reference-files", handler.Upload)

	req := httptest.NewRequest(http.MethodPost, "/reference-files", bytes.NewBufferString("not multipart"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReparseConflict(t *testing.T) {
	t.Parallel()

	handler := NewReferenceFileHandler(&reparseStub{err: service.ErrParseInProgress}, testLogger())

	r := chi.NewRouter()
	r.Post("/reference-files/{fileID}/reparse", handler.Reparse)

	req := httptest.NewRequest(http.MethodPost, "/reference-files/"+uuid.New().String()+"/reparse", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

type reparseStub struct {
	service.ReferenceFileService
	err error
}

func (s *reparseStub) ReparseReferenceFile(_ context.Context, _ uuid.UUID) (*domain.ReferenceFile, error) {
	return nil, s.err
}
