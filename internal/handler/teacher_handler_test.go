package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type teacherServiceStub struct {
	query      dto.TeacherQuery
	created    dto.CreateTeacherRequest
	deletedID  string
	importBody string
	err        error
}

func (s *teacherServiceStub) List(_ context.Context, query dto.TeacherQuery) ([]models.Teacher, *models.Pagination, error) {
	s.query = query
	return []models.Teacher{{ID: "t-1", Name: "Ana"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, s.err
}

func (s *teacherServiceStub) Get(_ context.Context, id string) (*models.Teacher, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Teacher{ID: id, Name: "Ana"}, nil
}

func (s *teacherServiceStub) Create(_ context.Context, req dto.CreateTeacherRequest) (*models.Teacher, error) {
	s.created = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.Teacher{ID: "t-9", Name: req.Name, Email: req.Email}, nil
}

func (s *teacherServiceStub) Update(_ context.Context, id string, req dto.UpdateTeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: id, Name: req.Name}, s.err
}

func (s *teacherServiceStub) Delete(_ context.Context, id string) error {
	s.deletedID = id
	return s.err
}

func (s *teacherServiceStub) Import(_ context.Context, r io.Reader) (*dto.TeacherImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.importBody = string(body)
	return &dto.TeacherImportResult{Imported: 1, TeacherIDs: []string{"t-1"}, Errors: []dto.ImportRowError{}}, nil
}

func teacherRouter(stub *teacherServiceStub, limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTeacherHandler(stub, limit)
	router := gin.New()
	router.GET("/teachers", h.List)
	router.GET("/teachers/:id", h.Get)
	router.POST("/teachers", h.Create)
	router.PUT("/teachers/:id", h.Update)
	router.DELETE("/teachers/:id", h.Delete)
	router.POST("/teachers/import", h.Import)
	return router
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestTeacherHandlerListBindsQuery(t *testing.T) {
	stub := &teacherServiceStub{}
	w := httptest.NewRecorder()
	teacherRouter(stub, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teachers?search=ana&page=2&pageSize=5&subjectId=s-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", stub.query.Search)
	assert.Equal(t, 2, stub.query.Page)
	assert.Equal(t, 5, stub.query.PageSize)
	assert.Equal(t, "s-1", stub.query.SubjectID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Contains(t, payload, "pagination")
}

func TestTeacherHandlerListRejectsBadPage(t *testing.T) {
	w := httptest.NewRecorder()
	teacherRouter(&teacherServiceStub{}, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teachers?page=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerCreate(t *testing.T) {
	stub := &teacherServiceStub{}
	body := `{"name":"Ana","email":"ana@example.com","subjectIds":["s-1"],"availableDays":[0,2]}`
	req := httptest.NewRequest(http.MethodPost, "/teachers", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	teacherRouter(stub, 0).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ana@example.com", stub.created.Email)
	assert.Equal(t, []int{0, 2}, stub.created.AvailableDays)
}

func TestTeacherHandlerCreateMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/teachers", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	teacherRouter(&teacherServiceStub{}, 0).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerCreateConflict(t *testing.T) {
	stub := &teacherServiceStub{err: appErrors.Clone(appErrors.ErrConflict, "email already registered")}
	req := httptest.NewRequest(http.MethodPost, "/teachers", bytes.NewBufferString(`{"name":"Ana","email":"ana@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	teacherRouter(stub, 0).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "email already registered")
}

func TestTeacherHandlerGetNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	teacherRouter(&teacherServiceStub{err: appErrors.ErrNotFound}, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teachers/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeacherHandlerDelete(t *testing.T) {
	stub := &teacherServiceStub{}
	w := httptest.NewRecorder()
	teacherRouter(stub, 0).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/teachers/t-4", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "t-4", stub.deletedID)
}

func TestTeacherHandlerImport(t *testing.T) {
	stub := &teacherServiceStub{}
	csv := "name,email\nAna,ana@example.com\n"
	body, contentType := multipartBody(t, "file", "teachers.csv", csv)
	req := httptest.NewRequest(http.MethodPost, "/teachers/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	teacherRouter(stub, 0).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csv, stub.importBody)
	assert.Contains(t, w.Body.String(), `"imported":1`)
}

func TestTeacherHandlerImportRequiresFile(t *testing.T) {
	body, contentType := multipartBody(t, "other", "teachers.csv", "name,email\n")
	req := httptest.NewRequest(http.MethodPost, "/teachers/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	teacherRouter(&teacherServiceStub{}, 0).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerImportTooLarge(t *testing.T) {
	stub := &teacherServiceStub{}
	body, contentType := multipartBody(t, "file", "teachers.csv", "name,email\n"+string(bytes.Repeat([]byte("x"), 400)))
	req := httptest.NewRequest(http.MethodPost, "/teachers/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	teacherRouter(stub, 64).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, stub.importBody)
}
