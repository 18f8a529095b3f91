package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arthurnacious/school-manager-api/internal/models"
	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
)

type rosterRepository interface {
	List(ctx context.Context, filter models.RosterFilter) ([]models.LessonRoster, int, error)
	FindByID(ctx context.Context, id string) (*models.LessonRoster, error)
	Create(ctx context.Context, roster *models.LessonRoster) error
	Delete(ctx context.Context, id string) error
	ListStudents(ctx context.Context, rosterID string) ([]models.RosterStudent, error)
	EnrollStudent(ctx context.Context, rosterID, studentID string) error
	RemoveStudent(ctx context.Context, rosterID, studentID string) error
	ListSessions(ctx context.Context, rosterID string) ([]models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	RecordAttendance(ctx context.Context, record *models.AttendanceRecord) error
	RecordMark(ctx context.Context, mark *models.Mark) error
	MarkRows(ctx context.Context, rosterID string) ([]models.MarkRow, error)
	AttendanceRows(ctx context.Context, rosterID string) ([]models.AttendanceRow, error)
}

// RosterService manages lesson rosters: enrollment, sessions, attendance
// and marks.
type RosterService struct {
	repo      rosterRepository
	courses   courseRepository
	subjects  subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs a RosterService instance.
func NewRosterService(repo rosterRepository, courses courseRepository, subjects subjectRepository, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RosterService{repo: repo, courses: courses, subjects: subjects, validator: validate, logger: logger}
}

// List returns rosters matching the filter with pagination metadata.
func (s *RosterService) List(ctx context.Context, filter models.RosterFilter) ([]models.LessonRoster, *models.Pagination, error) {
	rosters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rosters")
	}
	return rosters, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a roster by identifier.
func (s *RosterService) Get(ctx context.Context, id string) (*models.LessonRoster, error) {
	roster, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roster not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch roster")
	}
	return roster, nil
}

// Create opens a roster for an existing course.
func (s *RosterService) Create(ctx context.Context, req models.CreateRosterRequest) (*models.LessonRoster, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster payload")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch course")
	}

	roster := &models.LessonRoster{
		CourseID:   req.CourseID,
		LecturerID: req.LecturerID,
		Notes:      req.Notes,
	}
	if err := s.repo.Create(ctx, roster); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create roster")
	}
	return roster, nil
}

// Delete removes a roster.
func (s *RosterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete roster")
	}
	return nil
}

// Students returns the enrolled students for a roster.
func (s *RosterService) Students(ctx context.Context, id string) ([]models.RosterStudent, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	students, err := s.repo.ListStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// EnrollStudent adds a student to a roster; enrolling twice is a no-op.
func (s *RosterService) EnrollStudent(ctx context.Context, id string, req models.EnrollStudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.EnrollStudent(ctx, id, req.StudentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return nil
}

// RemoveStudent drops a student from a roster.
func (s *RosterService) RemoveStudent(ctx context.Context, id, studentID string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.RemoveStudent(ctx, id, studentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}
	return nil
}

// Sessions returns the held lessons for a roster.
func (s *RosterService) Sessions(ctx context.Context, id string) ([]models.Session, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListSessions(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// CreateSession records a held lesson within a roster.
func (s *RosterService) CreateSession(ctx context.Context, id string, req models.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	session := &models.Session{RosterID: id, Name: req.Name, HeldOn: req.HeldOn}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// RecordAttendance marks a student's attendance for a session. Re-recording
// replaces the prior status.
func (s *RosterService) RecordAttendance(ctx context.Context, sessionID string, req models.RecordAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	record := &models.AttendanceRecord{
		SessionID: sessionID,
		StudentID: req.StudentID,
		Status:    req.Status,
	}
	if err := s.repo.RecordAttendance(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return nil
}

// RecordMark captures a score for a student against a subject in a roster.
// Re-recording replaces the prior score.
func (s *RosterService) RecordMark(ctx context.Context, id string, req models.RecordMarkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch subject")
	}

	mark := &models.Mark{
		RosterID:  id,
		SubjectID: req.SubjectID,
		StudentID: req.StudentID,
		Score:     req.Score,
		Remark:    req.Remark,
	}
	if err := s.repo.RecordMark(ctx, mark); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record mark")
	}
	return nil
}
