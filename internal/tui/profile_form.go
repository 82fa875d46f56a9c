package tui

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/libctl/internal/profile"
)

const (
	profileFieldFullname = iota
	profileFieldRole
	profileFieldStudentID
	profileFieldAge
	profileFieldCourse
	profileFieldAddress
	profileFieldContact
	profileFieldBirthdate
)

// NewProfileForm builds the profile completion form. missing names the
// fields the backend reported empty and is shown as a hint.
func NewProfileForm(fields profile.Fields, missing []string) Form {
	age := ""
	if fields.Age > 0 {
		age = fmt.Sprint(fields.Age)
	}
	roles := make([]string, len(profile.Roles))
	for i, r := range profile.Roles {
		roles[i] = string(r)
	}
	courses := make([]string, len(profile.Courses))
	for i, c := range profile.Courses {
		courses[i] = string(c)
	}

	f := NewForm("Complete your profile", "Required before you can borrow books", []FieldSpec{
		{Label: "Full name", Placeholder: "Juan Dela Cruz", Value: fields.Fullname, CharLimit: 150, Required: true},
		{Label: "Role", Value: string(fields.Role), Options: roles, Required: true},
		{Label: "Student ID", Placeholder: "2024-00001", Value: fields.StudentID, CharLimit: 50},
		{Label: "Age", Placeholder: "20", Value: age, CharLimit: 3, Width: 8},
		{Label: "Course", Value: string(fields.Course), Options: courses, Required: true},
		{Label: "Address", Placeholder: "Street, City", Value: fields.Address, CharLimit: 255, Required: true},
		{Label: "Contact number", Placeholder: "09xxxxxxxxx", Value: fields.ContactNumber, CharLimit: 20},
		{Label: "Birthdate", Placeholder: "YYYY-MM-DD", Value: fields.Birthdate, CharLimit: 10, Width: 12, Required: true},
	}).WithConfirmPrompt("Save profile?")
	if len(missing) > 0 {
		f = f.WithNote("Missing: " + strings.Join(missing, ", "))
	}
	return f
}

// ParseProfileForm converts form values into validated profile fields.
func ParseProfileForm(values []string) (profile.Fields, error) {
	if len(values) != profileFieldBirthdate+1 {
		return profile.Fields{}, fmt.Errorf("profile form has %d fields, want %d", len(values), profileFieldBirthdate+1)
	}
	f := profile.Fields{
		Fullname:      strings.TrimSpace(values[profileFieldFullname]),
		Role:          profile.Role(values[profileFieldRole]),
		StudentID:     strings.TrimSpace(values[profileFieldStudentID]),
		Course:        profile.Course(values[profileFieldCourse]),
		Address:       strings.TrimSpace(values[profileFieldAddress]),
		ContactNumber: strings.TrimSpace(values[profileFieldContact]),
		Birthdate:     strings.TrimSpace(values[profileFieldBirthdate]),
	}
	age, err := optionalInt(values[profileFieldAge], "age")
	if err != nil {
		return f, err
	}
	f.Age = age
	return f, f.Validate()
}

// RunProfileForm shows the profile form until the values validate or the
// user cancels.
func RunProfileForm(fields profile.Fields, missing []string) (profile.Fields, error) {
	form := NewProfileForm(fields, missing)
	for {
		values, err := RunForm(form)
		if err != nil {
			return profile.Fields{}, err
		}
		out, err := ParseProfileForm(values)
		if err == nil {
			return out, nil
		}
		form = NewProfileForm(out, missing).Reopen(err.Error())
	}
}
