package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthurnacious/school-manager-api/internal/models"
	appErrors "github.com/arthurnacious/school-manager-api/pkg/errors"
)

type mockRosterRepo struct {
	byID           map[string]*models.LessonRoster
	students       map[string][]models.RosterStudent
	sessions       map[string][]models.Session
	attendance     []*models.AttendanceRecord
	marks          []*models.Mark
	markRows       []models.MarkRow
	attendanceRows []models.AttendanceRow
}

func newMockRosterRepo() *mockRosterRepo {
	return &mockRosterRepo{
		byID:     make(map[string]*models.LessonRoster),
		students: make(map[string][]models.RosterStudent),
		sessions: make(map[string][]models.Session),
	}
}

func (m *mockRosterRepo) List(ctx context.Context, filter models.RosterFilter) ([]models.LessonRoster, int, error) {
	var rosters []models.LessonRoster
	for _, r := range m.byID {
		rosters = append(rosters, *r)
	}
	return rosters, len(rosters), nil
}

func (m *mockRosterRepo) FindByID(ctx context.Context, id string) (*models.LessonRoster, error) {
	if r, ok := m.byID[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRosterRepo) Create(ctx context.Context, roster *models.LessonRoster) error {
	roster.ID = "generated"
	m.byID[roster.ID] = roster
	return nil
}

func (m *mockRosterRepo) Delete(ctx context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func (m *mockRosterRepo) ListStudents(ctx context.Context, rosterID string) ([]models.RosterStudent, error) {
	return m.students[rosterID], nil
}

func (m *mockRosterRepo) EnrollStudent(ctx context.Context, rosterID, studentID string) error {
	for _, s := range m.students[rosterID] {
		if s.StudentID == studentID {
			return nil
		}
	}
	m.students[rosterID] = append(m.students[rosterID], models.RosterStudent{RosterID: rosterID, StudentID: studentID})
	return nil
}

func (m *mockRosterRepo) RemoveStudent(ctx context.Context, rosterID, studentID string) error {
	kept := m.students[rosterID][:0]
	for _, s := range m.students[rosterID] {
		if s.StudentID != studentID {
			kept = append(kept, s)
		}
	}
	m.students[rosterID] = kept
	return nil
}

func (m *mockRosterRepo) ListSessions(ctx context.Context, rosterID string) ([]models.Session, error) {
	return m.sessions[rosterID], nil
}

func (m *mockRosterRepo) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = "session-generated"
	m.sessions[session.RosterID] = append(m.sessions[session.RosterID], *session)
	return nil
}

func (m *mockRosterRepo) RecordAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	m.attendance = append(m.attendance, record)
	return nil
}

func (m *mockRosterRepo) RecordMark(ctx context.Context, mark *models.Mark) error {
	m.marks = append(m.marks, mark)
	return nil
}

func (m *mockRosterRepo) MarkRows(ctx context.Context, rosterID string) ([]models.MarkRow, error) {
	return m.markRows, nil
}

func (m *mockRosterRepo) AttendanceRows(ctx context.Context, rosterID string) ([]models.AttendanceRow, error) {
	return m.attendanceRows, nil
}

type mockCourseRepo struct {
	byID map[string]*models.Course
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) ExistsBySlug(ctx context.Context, slug, excludeID string) (bool, error) {
	return false, nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error { return nil }
func (m *mockCourseRepo) Update(ctx context.Context, course *models.Course) error { return nil }
func (m *mockCourseRepo) Delete(ctx context.Context, id string) error             { return nil }

type mockSubjectRepo struct {
	byID map[string]*models.Subject
}

func (m *mockSubjectRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Subject, error) {
	return nil, nil
}

func (m *mockSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubjectRepo) Create(ctx context.Context, subject *models.Subject) error { return nil }
func (m *mockSubjectRepo) Update(ctx context.Context, subject *models.Subject) error { return nil }
func (m *mockSubjectRepo) Delete(ctx context.Context, id string) error               { return nil }

func TestCreateRosterUnknownCourse(t *testing.T) {
	rosters := newMockRosterRepo()
	courses := &mockCourseRepo{byID: map[string]*models.Course{}}
	svc := NewRosterService(rosters, courses, &mockSubjectRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateRosterRequest{
		CourseID:   "7c2b2e9a-12f1-4a9b-8a77-57cbf2d57a10",
		LecturerID: "0c0ff0a4-5f06-40e2-9f54-0c6edaa4e3c8",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollStudentTwiceIsNoop(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	svc := NewRosterService(rosters, &mockCourseRepo{}, &mockSubjectRepo{}, nil, nil)

	req := models.EnrollStudentRequest{StudentID: "3af2e3a2-4c71-44a3-a9f8-5d8f6ef3a111"}
	require.NoError(t, svc.EnrollStudent(context.Background(), "r1", req))
	require.NoError(t, svc.EnrollStudent(context.Background(), "r1", req))

	students, err := svc.Students(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestRecordMarkUnknownSubject(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	svc := NewRosterService(rosters, &mockCourseRepo{}, &mockSubjectRepo{byID: map[string]*models.Subject{}}, nil, nil)

	err := svc.RecordMark(context.Background(), "r1", models.RecordMarkRequest{
		SubjectID: "9d3f4b1a-6e1d-4ce0-a1b3-7e91f89f2abc",
		StudentID: "3af2e3a2-4c71-44a3-a9f8-5d8f6ef3a111",
		Score:     72.5,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, rosters.marks)
}

func TestRecordMarkAndAttendance(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	subjects := &mockSubjectRepo{byID: map[string]*models.Subject{
		"9d3f4b1a-6e1d-4ce0-a1b3-7e91f89f2abc": {ID: "9d3f4b1a-6e1d-4ce0-a1b3-7e91f89f2abc", CourseID: "c1", Name: "Theory"},
	}}
	svc := NewRosterService(rosters, &mockCourseRepo{}, subjects, nil, nil)

	err := svc.RecordMark(context.Background(), "r1", models.RecordMarkRequest{
		SubjectID: "9d3f4b1a-6e1d-4ce0-a1b3-7e91f89f2abc",
		StudentID: "3af2e3a2-4c71-44a3-a9f8-5d8f6ef3a111",
		Score:     88,
		Remark:    "distinction",
	})
	require.NoError(t, err)
	require.Len(t, rosters.marks, 1)
	assert.Equal(t, 88.0, rosters.marks[0].Score)

	err = svc.RecordAttendance(context.Background(), "s1", models.RecordAttendanceRequest{
		StudentID: "3af2e3a2-4c71-44a3-a9f8-5d8f6ef3a111",
		Status:    models.AttendanceLate,
	})
	require.NoError(t, err)
	require.Len(t, rosters.attendance, 1)
	assert.Equal(t, models.AttendanceLate, rosters.attendance[0].Status)
}

func TestCreateSession(t *testing.T) {
	rosters := newMockRosterRepo()
	rosters.byID["r1"] = &models.LessonRoster{ID: "r1", CourseID: "c1"}
	svc := NewRosterService(rosters, &mockCourseRepo{}, &mockSubjectRepo{}, nil, nil)

	session, err := svc.CreateSession(context.Background(), "r1", models.CreateSessionRequest{
		Name:   "Week 1",
		HeldOn: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", session.RosterID)

	sessions, err := svc.Sessions(context.Background(), "r1")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}
