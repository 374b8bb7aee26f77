// Package rest HTTP API поверх сервиса обследований.
package rest

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	app "dental-bot/internal/application"
	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

const (
	maxUploadSize = 32 << 20
	maxBatchFiles = 16
)

var allowedExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

type Server struct {
	exams     *app.ExaminationService
	log       *zap.Logger
	maxUpload int64
}

func NewServer(exams *app.ExaminationService, log *zap.Logger) *Server {
	return &Server{exams: exams, log: log, maxUpload: maxUploadSize}
}

// uploadError ошибка разбора загруженного файла с HTTP-статусом ответа.
type uploadError struct {
	status int
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = maxUploadSize

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	v1 := r.Group("/v1")
	v1.POST("/diagnoses", s.Diagnose)
	v1.POST("/examinations", s.CreateExamination)
	v1.POST("/examinations/batch", s.CreateExaminations)
	v1.GET("/examinations/:id", s.GetExamination)
	v1.GET("/users/:id/examinations", s.ListExaminations)

	return r
}

type DiagnoseRequest struct {
	Labels []string `json:"labels"`
}

type DiagnoseResponse struct {
	Statements []string               `json:"statements"`
	Report     entity.DiagnosisReport `json:"report"`
}

type ExaminationResponse struct {
	*entity.Examination
	Statements     []string `json:"statements"`
	AnnotatedImage string   `json:"annotated_image,omitempty"`
}

// Diagnose строит отчёт по готовому списку меток.
func (s *Server) Diagnose(c *gin.Context) {
	var req DiagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	labels := make([]entity.Label, 0, len(req.Labels))
	for _, l := range req.Labels {
		labels = append(labels, entity.Label(l))
	}
	report := s.exams.Diagnose(labels)
	c.JSON(http.StatusOK, DiagnoseResponse{Statements: report.Statements(), Report: report})
}

// CreateExamination принимает снимок в поле file и запускает обследование.
func (s *Server) CreateExamination(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}

	userID, err := parseUserID(c.PostForm("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	data, err := s.readUpload(file)
	if err != nil {
		s.writeError(c, err)
		return
	}

	out, err := s.exams.Examine(c.Request.Context(), userID, data)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, examinationResponse(out))
}

// CreateExaminations обследует несколько снимков из полей file за один запрос.
// Ответ идёт в порядке файлов; ошибка на любом снимке отменяет весь пакет.
func (s *Server) CreateExaminations(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if len(files) > maxBatchFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Too many files, at most %d", maxBatchFiles)})
		return
	}

	userID, err := parseUserID(c.PostForm("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	images := make([][]byte, 0, len(files))
	for _, file := range files {
		data, err := s.readUpload(file)
		if err != nil {
			s.writeError(c, err)
			return
		}
		images = append(images, data)
	}

	outs, err := s.exams.ExamineBatch(c.Request.Context(), userID, images)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]ExaminationResponse, 0, len(outs))
	for _, out := range outs {
		items = append(items, examinationResponse(out))
	}
	c.JSON(http.StatusCreated, gin.H{"examinations": items})
}

// readUpload проверяет расширение и размер файла и читает его целиком.
func (s *Server) readUpload(file *multipart.FileHeader) ([]byte, error) {
	if !allowedExtensions[strings.ToLower(filepath.Ext(file.Filename))] {
		return nil, &uploadError{http.StatusBadRequest, "Invalid file type. Allowed types: png, jpg, jpeg"}
	}
	if file.Size > s.maxUpload {
		return nil, &uploadError{http.StatusRequestEntityTooLarge, fmt.Sprintf("File %s is larger than %d bytes", file.Filename, s.maxUpload)}
	}

	f, err := file.Open()
	if err != nil {
		return nil, &uploadError{http.StatusBadRequest, "Cannot read file"}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &uploadError{http.StatusBadRequest, "Cannot read file"}
	}
	return data, nil
}

func examinationResponse(out *app.ExaminationOutput) ExaminationResponse {
	resp := ExaminationResponse{
		Examination: out.Examination,
		Statements:  out.Examination.Report.Statements(),
	}
	if len(out.Annotated) > 0 {
		resp.AnnotatedImage = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out.Annotated)
	}
	return resp
}

// GetExamination возвращает сохранённое обследование.
func (s *Server) GetExamination(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}
	exam, err := s.exams.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExaminationResponse{Examination: exam, Statements: exam.Report.Statements()})
}

// ListExaminations возвращает последние обследования пользователя.
func (s *Server) ListExaminations(c *gin.Context) {
	userID, err := parseUserID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	exams, err := s.exams.History(c.Request.Context(), userID, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	items := make([]ExaminationResponse, 0, len(exams))
	for _, exam := range exams {
		items = append(items, ExaminationResponse{Examination: exam, Statements: exam.Report.Statements()})
	}
	c.JSON(http.StatusOK, gin.H{"examinations": items})
}

func (s *Server) writeError(c *gin.Context, err error) {
	var uerr *uploadError
	switch {
	case errors.As(err, &uerr):
		c.JSON(uerr.status, gin.H{"error": uerr.msg})
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, app.ErrInputAcquisition):
		s.log.Warn("input acquisition", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
	}
}

func parseUserID(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
