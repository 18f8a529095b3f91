package models

import "time"

// AttendanceStatus enumerates attendance outcomes for a session.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceLate    AttendanceStatus = "Late"
	AttendanceExcused AttendanceStatus = "Excused"
)

// LessonRoster is a running instance of a course with a lecturer and an
// enrolled set of students.
type LessonRoster struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	LecturerID string    `db:"lecturer_id" json:"lecturer_id"`
	Notes      string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RosterStudent links an enrolled student to a roster.
type RosterStudent struct {
	RosterID  string `db:"roster_id" json:"roster_id"`
	StudentID string `db:"student_id" json:"student_id"`
	Name      string `db:"name" json:"name,omitempty"`
	Email     string `db:"email" json:"email,omitempty"`
}

// Session is a single held lesson within a roster.
type Session struct {
	ID       string    `db:"id" json:"id"`
	RosterID string    `db:"roster_id" json:"roster_id"`
	Name     string    `db:"name" json:"name"`
	HeldOn   time.Time `db:"held_on" json:"held_on"`
}

// AttendanceRecord marks a student's attendance for a session.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
}

// Mark is a score a student earned for a subject within a roster.
type Mark struct {
	ID        string  `db:"id" json:"id"`
	RosterID  string  `db:"roster_id" json:"roster_id"`
	SubjectID string  `db:"subject_id" json:"subject_id"`
	StudentID string  `db:"student_id" json:"student_id"`
	Score     float64 `db:"score" json:"score"`
	Remark    string  `db:"remark" json:"remark,omitempty"`
}

// CreateRosterRequest is the payload for opening a lesson roster.
type CreateRosterRequest struct {
	CourseID   string `json:"course_id" validate:"required,uuid"`
	LecturerID string `json:"lecturer_id" validate:"required,uuid"`
	Notes      string `json:"notes" validate:"max=500"`
}

// EnrollStudentRequest enrolls a student into a roster.
type EnrollStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
}

// CreateSessionRequest records a held lesson for a roster.
type CreateSessionRequest struct {
	Name   string    `json:"name" validate:"required,max=100"`
	HeldOn time.Time `json:"held_on" validate:"required"`
}

// RecordAttendanceRequest marks attendance for a student in a session.
type RecordAttendanceRequest struct {
	StudentID string           `json:"student_id" validate:"required,uuid"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=Present Absent Late Excused"`
}

// RecordMarkRequest captures a score for a student against a subject.
type RecordMarkRequest struct {
	SubjectID string  `json:"subject_id" validate:"required,uuid"`
	StudentID string  `json:"student_id" validate:"required,uuid"`
	Score     float64 `json:"score" validate:"gte=0,lte=100"`
	Remark    string  `json:"remark" validate:"max=200"`
}

// RosterFilter captures list criteria for lesson rosters.
type RosterFilter struct {
	CourseID   string
	LecturerID string
	Page       int
	PageSize   int
}

// MarkRow is a denormalised mark row used for exports.
type MarkRow struct {
	StudentName string  `db:"student_name"`
	SubjectName string  `db:"subject_name"`
	Score       float64 `db:"score"`
	Remark      string  `db:"remark"`
}

// AttendanceRow is a denormalised attendance row used for exports.
type AttendanceRow struct {
	StudentName string `db:"student_name"`
	SessionName string `db:"session_name"`
	Status      string `db:"status"`
}
