// Package profile decides whether a user's profile is complete enough to
// use the library, and builds the update that completes it.
package profile

import (
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
)

// Role is the user's affiliation.
type Role string

const (
	RoleStudent Role = "Student"
	RoleFaculty Role = "Faculty/Staff"
	RoleGuest   Role = "Guest"
)

// Roles lists the accepted roles in display order.
var Roles = []Role{RoleStudent, RoleFaculty, RoleGuest}

// Course is the user's degree program.
type Course string

const (
	CourseNone   Course = "N/A"
	CourseBSIT   Course = "BSIT"
	CourseBSCPE  Course = "BSCPE"
	CourseBSArch Course = "BSArch"
	CourseBSMT   Course = "BSMT"
	CourseBSDS   Course = "BSDS"
)

// Courses lists the accepted courses in display order.
var Courses = []Course{CourseNone, CourseBSIT, CourseBSCPE, CourseBSArch, CourseBSMT, CourseBSDS}

// Missing names the required fields that are blank in p, in form order.
func Missing(p api.Profile) []string {
	var out []string
	for _, f := range []struct {
		name, value string
	}{
		{"fullname", p.Fullname},
		{"role", p.Role},
		{"course", p.Course},
		{"birthdate", p.Birthdate},
		{"address", p.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// IsComplete reports whether fullname, role, course, birthdate and
// address are all filled in.
func IsComplete(p api.Profile) bool {
	return len(Missing(p)) == 0
}
