package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arthurnacious/school-manager-api/internal/models"
	"github.com/arthurnacious/school-manager-api/internal/service"
	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
	"github.com/arthurnacious/school-manager-api/pkg/response"
)

// RosterHandler handles lesson roster endpoints: enrollment, sessions,
// attendance, marks and sheet exports.
type RosterHandler struct {
	service *service.RosterService
	exports *service.ExportService
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(svc *service.RosterService, exports *service.ExportService) *RosterHandler {
	return &RosterHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List rosters
// @Tags Rosters
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param course_id query string false "Course filter"
// @Param lecturer_id query string false "Lecturer filter"
// @Success 200 {object} response.Envelope
// @Router /rosters [get]
func (h *RosterHandler) List(c *gin.Context) {
	var filter models.RosterFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	filter.CourseID = c.Query("course_id")
	filter.LecturerID = c.Query("lecturer_id")

	rosters, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rosters, pagination)
}

// Get godoc
// @Summary Get roster
// @Tags Rosters
// @Produce json
// @Param id path string true "Roster ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id} [get]
func (h *RosterHandler) Get(c *gin.Context) {
	roster, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, roster, nil)
}

// Create godoc
// @Summary Create roster
// @Tags Rosters
// @Accept json
// @Produce json
// @Param payload body models.CreateRosterRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters [post]
func (h *RosterHandler) Create(c *gin.Context) {
	var req models.CreateRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	roster, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, roster)
}

// Delete godoc
// @Summary Delete roster
// @Tags Rosters
// @Produce json
// @Param id path string true "Roster ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id} [delete]
func (h *RosterHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Students godoc
// @Summary List roster students
// @Tags Rosters
// @Produce json
// @Param id path string true "Roster ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/students [get]
func (h *RosterHandler) Students(c *gin.Context) {
	students, err := h.service.Students(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, students, nil)
}

// EnrollStudent godoc
// @Summary Enroll student
// @Tags Rosters
// @Accept json
// @Produce json
// @Param id path string true "Roster ID"
// @Param payload body models.EnrollStudentRequest true "Enrollment payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/students [post]
func (h *RosterHandler) EnrollStudent(c *gin.Context) {
	var req models.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.EnrollStudent(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RemoveStudent godoc
// @Summary Remove student
// @Tags Rosters
// @Produce json
// @Param id path string true "Roster ID"
// @Param studentId path string true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/students/{studentId} [delete]
func (h *RosterHandler) RemoveStudent(c *gin.Context) {
	if err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Sessions godoc
// @Summary List roster sessions
// @Tags Rosters
// @Produce json
// @Param id path string true "Roster ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/sessions [get]
func (h *RosterHandler) Sessions(c *gin.Context) {
	sessions, err := h.service.Sessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, sessions, nil)
}

// CreateSession godoc
// @Summary Create roster session
// @Tags Rosters
// @Accept json
// @Produce json
// @Param id path string true "Roster ID"
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/sessions [post]
func (h *RosterHandler) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, session)
}

// RecordAttendance godoc
// @Summary Record attendance
// @Tags Rosters
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body models.RecordAttendanceRequest true "Attendance payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions/{sessionId}/attendance [post]
func (h *RosterHandler) RecordAttendance(c *gin.Context) {
	var req models.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.RecordAttendance(c.Request.Context(), c.Param("sessionId"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// RecordMark godoc
// @Summary Record mark
// @Tags Rosters
// @Accept json
// @Produce json
// @Param id path string true "Roster ID"
// @Param payload body models.RecordMarkRequest true "Mark payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/marks [post]
func (h *RosterHandler) RecordMark(c *gin.Context) {
	var req models.RecordMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.RecordMark(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ExportMarks godoc
// @Summary Export mark sheet
// @Description Download the roster mark sheet as CSV or PDF
// @Tags Rosters
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Roster ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/marks/export [get]
func (h *RosterHandler) ExportMarks(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.MarkSheet(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// ExportAttendance godoc
// @Summary Export attendance sheet
// @Description Download the roster attendance sheet as CSV or PDF
// @Tags Rosters
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Roster ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/attendance/export [get]
func (h *RosterHandler) ExportAttendance(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.AttendanceSheet(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
