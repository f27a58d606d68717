package agenda

import "github.com/noah-isme/gym-agenda-api/internal/models"

// VisibilityScope is the resolved personal-session visibility of a requester.
type VisibilityScope int

const (
	// ScopeNone hides every personal session. It is the zero value.
	ScopeNone VisibilityScope = iota
	// ScopeAll shows every personal session.
	ScopeAll
	// ScopeStudent shows sessions where StudentID is the designated student.
	ScopeStudent
	// ScopeInstructor shows sessions where InstructorID is the designated instructor.
	ScopeInstructor
)

// Visibility restricts which personal sessions a requester may see.
type Visibility struct {
	Scope        VisibilityScope
	StudentID    string
	InstructorID string
}

// VisibleToAll is the administrative visibility.
func VisibleToAll() Visibility { return Visibility{Scope: ScopeAll} }

// VisibleToNone hides all personal sessions.
func VisibleToNone() Visibility { return Visibility{Scope: ScopeNone} }

// VisibleToStudent limits sessions to studentID; an empty id hides everything.
func VisibleToStudent(studentID string) Visibility {
	if studentID == "" {
		return VisibleToNone()
	}
	return Visibility{Scope: ScopeStudent, StudentID: studentID}
}

// VisibleToInstructor limits sessions to instructorID; an empty id hides everything.
func VisibleToInstructor(instructorID string) Visibility {
	if instructorID == "" {
		return VisibleToNone()
	}
	return Visibility{Scope: ScopeInstructor, InstructorID: instructorID}
}

// Allows reports whether s is visible.
func (v Visibility) Allows(s models.PersonalSession) bool {
	switch v.Scope {
	case ScopeAll:
		return true
	case ScopeStudent:
		return v.StudentID != "" && s.StudentID == v.StudentID
	case ScopeInstructor:
		return v.InstructorID != "" && s.InstructorID == v.InstructorID
	default:
		return false
	}
}

// CacheKey is a stable fragment identifying the scope in cache keys.
func (v Visibility) CacheKey() string {
	switch v.Scope {
	case ScopeAll:
		return "all"
	case ScopeStudent:
		return "student-" + v.StudentID
	case ScopeInstructor:
		return "instructor-" + v.InstructorID
	default:
		return "none"
	}
}

// Apply copies the scope restriction onto a personal session store filter.
// ok is false when the scope hides every session and no read is needed.
func (v Visibility) Apply(filter models.PersonalSessionFilter) (models.PersonalSessionFilter, bool) {
	switch v.Scope {
	case ScopeAll:
		return filter, true
	case ScopeStudent:
		if v.StudentID == "" {
			return filter, false
		}
		filter.StudentID = v.StudentID
		return filter, true
	case ScopeInstructor:
		if v.InstructorID == "" {
			return filter, false
		}
		if filter.InstructorID != "" && filter.InstructorID != v.InstructorID {
			return filter, false
		}
		filter.InstructorID = v.InstructorID
		return filter, true
	default:
		return filter, false
	}
}
