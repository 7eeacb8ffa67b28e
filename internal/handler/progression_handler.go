package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/middleware"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/lumenlms/progression-backend/internal/response"
	"github.com/lumenlms/progression-backend/internal/service"
	"github.com/lumenlms/progression-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ProgressionHandler handles the student-facing progression endpoints:
// unlock checks, progress updates, attempts and course roll-ups.
type ProgressionHandler struct {
	progressService *service.ProgressService
	attemptService  *service.AttemptService
	log             zerolog.Logger
}

// NewProgressionHandler creates a new ProgressionHandler.
func NewProgressionHandler(progressService *service.ProgressService, attemptService *service.AttemptService, log zerolog.Logger) *ProgressionHandler {
	return &ProgressionHandler{
		progressService: progressService,
		attemptService:  attemptService,
		log:             log.With().Str("component", "progression_handler").Logger(),
	}
}

// GetUnlockStatus godoc
// GET /api/v1/student/contents/:content_id/unlock-status
func (h *ProgressionHandler) GetUnlockStatus(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	status, err := h.progressService.UnlockStatus(c.Request.Context(), claims.StudentID, contentID)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// UpdateProgress godoc
// POST /api/v1/student/contents/:content_id/progress
// Records a watch/view event on non-assessment content.
func (h *ProgressionHandler) UpdateProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateProgressRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.progressService.UpdateProgress(c.Request.Context(), claims.StudentID, contentID, &req)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetContentProgress godoc
// GET /api/v1/student/contents/:content_id/progress
func (h *ProgressionHandler) GetContentProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rec, err := h.progressService.ContentProgress(c.Request.Context(), claims.StudentID, contentID)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, rec)
}

// GetCourseProgress godoc
// GET /api/v1/student/courses/:course_id/progress
func (h *ProgressionHandler) GetCourseProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.progressService.CourseProgress(c.Request.Context(), claims.StudentID, courseID)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// StartAttempt godoc
// POST /api/v1/student/contents/:content_id/attempts
// Starts a new attempt or resumes the active one (idempotent).
func (h *ProgressionHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.Start(c.Request.Context(), claims.StudentID, contentID)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// SubmitAttempt godoc
// POST /api/v1/student/contents/:content_id/attempts/:attempt_number/submit
func (h *ProgressionHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	attemptNumber, err := strconv.Atoi(c.Param("attempt_number"))
	if err != nil || attemptNumber < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), claims.StudentID, contentID, attemptNumber, &req)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetAttemptTiming godoc
// GET /api/v1/student/contents/:content_id/attempts/timing
// Covers page reloads: the frontend re-reads the remaining time.
func (h *ProgressionHandler) GetAttemptTiming(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	contentID, err := uuid.Parse(c.Param("content_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	timing, err := h.attemptService.Timing(c.Request.Context(), claims.StudentID, contentID)
	if err != nil {
		h.failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, timing)
}

// failDomain maps service errors onto response codes.
func (h *ProgressionHandler) failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrContentNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	case errors.Is(err, service.ErrContentLocked):
		response.FailWithFields(c, http.StatusForbidden, response.ErrContentLocked, map[string]string{"reason": err.Error()})
	case errors.Is(err, service.ErrNotAssessment):
		response.Fail(c, http.StatusBadRequest, response.ErrNotAssessment)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, service.ErrInvalidWatchData):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		response.Fail(c, http.StatusForbidden, response.ErrAttemptLimitExceeded)
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrAttemptAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptAlreadyCompleted)
	case errors.Is(err, service.ErrWatchLimitExceeded):
		response.Fail(c, http.StatusBadRequest, response.ErrWatchLimitExceeded)
	case errors.Is(err, service.ErrInsufficientWatchCoverage):
		response.Fail(c, http.StatusBadRequest, response.ErrInsufficientWatchCoverage)
	case errors.Is(err, service.ErrGradingFailed):
		h.log.Error().Err(err).Msg("grading failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrGradingFailed)
	default:
		h.log.Error().Err(err).Msg("unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
