package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arthurnacious/school-manager-api/internal/models"
)

// RosterRepository provides database access for lesson rosters, their
// sessions, attendance, and marks.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository creates a new instance of RosterRepository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// List returns rosters based on filters with total count.
func (r *RosterRepository) List(ctx context.Context, filter models.RosterFilter) ([]models.LessonRoster, int, error) {
	baseQuery := `FROM lesson_rosters WHERE 1=1`
	var args []interface{}

	if filter.CourseID != "" {
		baseQuery += fmt.Sprintf(" AND course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	if filter.LecturerID != "" {
		baseQuery += fmt.Sprintf(" AND lecturer_id = $%d", len(args)+1)
		args = append(args, filter.LecturerID)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT id, course_id, lecturer_id, notes, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", baseQuery, pageSize, offset)

	var rosters []models.LessonRoster
	if err := r.db.SelectContext(ctx, &rosters, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list rosters: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rosters: %w", err)
	}

	return rosters, total, nil
}

// FindByID returns a roster by identifier.
func (r *RosterRepository) FindByID(ctx context.Context, id string) (*models.LessonRoster, error) {
	const query = `SELECT id, course_id, lecturer_id, notes, created_at FROM lesson_rosters WHERE id = $1 LIMIT 1`
	var roster models.LessonRoster
	if err := r.db.GetContext(ctx, &roster, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find roster: %w", err)
	}
	return &roster, nil
}

// Create inserts a new lesson roster.
func (r *RosterRepository) Create(ctx context.Context, roster *models.LessonRoster) error {
	if roster.ID == "" {
		roster.ID = uuid.NewString()
	}
	if roster.CreatedAt.IsZero() {
		roster.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO lesson_rosters (id, course_id, lecturer_id, notes, created_at) VALUES (:id, :course_id, :lecturer_id, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, roster); err != nil {
		return fmt.Errorf("create roster: %w", err)
	}
	return nil
}

// Delete removes a lesson roster.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lesson_rosters WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete roster: %w", err)
	}
	return nil
}

// ListStudents returns the students enrolled in a roster.
func (r *RosterRepository) ListStudents(ctx context.Context, rosterID string) ([]models.RosterStudent, error) {
	const query = `SELECT rs.roster_id, rs.student_id, u.name, u.email
		FROM roster_students rs
		JOIN users u ON u.id = rs.student_id
		WHERE rs.roster_id = $1
		ORDER BY u.name ASC`
	var students []models.RosterStudent
	if err := r.db.SelectContext(ctx, &students, query, rosterID); err != nil {
		return nil, fmt.Errorf("list roster students: %w", err)
	}
	return students, nil
}

// EnrollStudent adds a student to a roster. Enrolling twice is a no-op.
func (r *RosterRepository) EnrollStudent(ctx context.Context, rosterID, studentID string) error {
	const query = `INSERT INTO roster_students (roster_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, rosterID, studentID); err != nil {
		return fmt.Errorf("enroll student: %w", err)
	}
	return nil
}

// RemoveStudent removes a student from a roster.
func (r *RosterRepository) RemoveStudent(ctx context.Context, rosterID, studentID string) error {
	const query = `DELETE FROM roster_students WHERE roster_id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, rosterID, studentID); err != nil {
		return fmt.Errorf("remove student: %w", err)
	}
	return nil
}

// ListSessions returns the held sessions of a roster.
func (r *RosterRepository) ListSessions(ctx context.Context, rosterID string) ([]models.Session, error) {
	const query = `SELECT id, roster_id, name, held_on FROM sessions WHERE roster_id = $1 ORDER BY held_on ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, rosterID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CreateSession inserts a new session for a roster.
func (r *RosterRepository) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	const query = `INSERT INTO sessions (id, roster_id, name, held_on) VALUES (:id, :roster_id, :name, :held_on)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// RecordAttendance upserts an attendance record for a session.
func (r *RosterRepository) RecordAttendance(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance (id, session_id, student_id, status) VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, student_id) DO UPDATE SET status = EXCLUDED.status`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.SessionID, record.StudentID, record.Status); err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}
	return nil
}

// RecordMark upserts a mark for a student in a roster subject.
func (r *RosterRepository) RecordMark(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	const query = `INSERT INTO marks (id, roster_id, subject_id, student_id, score, remark) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (roster_id, subject_id, student_id) DO UPDATE SET score = EXCLUDED.score, remark = EXCLUDED.remark`
	if _, err := r.db.ExecContext(ctx, query, mark.ID, mark.RosterID, mark.SubjectID, mark.StudentID, mark.Score, mark.Remark); err != nil {
		return fmt.Errorf("record mark: %w", err)
	}
	return nil
}

// MarkRows returns denormalised mark rows for export.
func (r *RosterRepository) MarkRows(ctx context.Context, rosterID string) ([]models.MarkRow, error) {
	const query = `SELECT u.name AS student_name, s.name AS subject_name, m.score, m.remark
		FROM marks m
		JOIN users u ON u.id = m.student_id
		JOIN subjects s ON s.id = m.subject_id
		WHERE m.roster_id = $1
		ORDER BY u.name ASC, s.name ASC`
	var rows []models.MarkRow
	if err := r.db.SelectContext(ctx, &rows, query, rosterID); err != nil {
		return nil, fmt.Errorf("mark rows: %w", err)
	}
	return rows, nil
}

// AttendanceRows returns denormalised attendance rows for export.
func (r *RosterRepository) AttendanceRows(ctx context.Context, rosterID string) ([]models.AttendanceRow, error) {
	const query = `SELECT u.name AS student_name, se.name AS session_name, a.status
		FROM attendance a
		JOIN sessions se ON se.id = a.session_id
		JOIN users u ON u.id = a.student_id
		WHERE se.roster_id = $1
		ORDER BY se.held_on ASC, u.name ASC`
	var rows []models.AttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, rosterID); err != nil {
		return nil, fmt.Errorf("attendance rows: %w", err)
	}
	return rows, nil
}
