package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/go-playground/validator/v10"
)

// ErrIdentityMissing is returned when an update would be sent without the
// user's id, username or email.
var ErrIdentityMissing = errors.New("profile identity is incomplete")

// Identity is the part of a profile the user cannot edit. The backend
// needs all of it on every update.
type Identity struct {
	UserID   int64
	Username string
	Email    string
}

// IdentityOf extracts the identity of a fetched profile.
func IdentityOf(p api.Profile) Identity {
	return Identity{UserID: p.ID, Username: p.Username, Email: p.Email}
}

func (id Identity) missing() []string {
	var out []string
	if id.UserID <= 0 {
		out = append(out, "userId")
	}
	if strings.TrimSpace(id.Username) == "" {
		out = append(out, "username")
	}
	if strings.TrimSpace(id.Email) == "" {
		out = append(out, "email")
	}
	return out
}

// Fields are the editable profile fields.
type Fields struct {
	Fullname      string `json:"fullname" validate:"required"`
	Role          Role   `json:"role" validate:"required,oneof=Student Faculty/Staff Guest"`
	StudentID     string `json:"studentId"`
	Age           int    `json:"age,omitempty" validate:"omitempty,min=5,max=500"`
	Course        Course `json:"course" validate:"required,oneof=N/A BSIT BSCPE BSArch BSMT BSDS"`
	Address       string `json:"address" validate:"required"`
	ContactNumber string `json:"contactNumber"`
	Birthdate     string `json:"birthdate" validate:"required,datetime=2006-01-02"`
}

// DefaultFields is the starting point of an empty form.
func DefaultFields() Fields {
	return Fields{Role: RoleStudent, Course: CourseBSIT}
}

// FieldsOf pre-fills Fields from a fetched profile, falling back to the
// defaults for blank choices.
func FieldsOf(p api.Profile) Fields {
	f := Fields{
		Fullname:      p.Fullname,
		Role:          Role(p.Role),
		StudentID:     p.StudentID,
		Course:        Course(p.Course),
		Address:       p.Address,
		ContactNumber: p.ContactNumber,
		Birthdate:     p.Birthdate,
	}
	if p.Age != nil {
		f.Age = *p.Age
	}
	if f.Role == "" {
		f.Role = RoleStudent
	}
	if f.Course == "" {
		f.Course = CourseBSIT
	}
	return f
}

func (f Fields) trimmed() Fields {
	f.Fullname = strings.TrimSpace(f.Fullname)
	f.Role = Role(strings.TrimSpace(string(f.Role)))
	f.StudentID = strings.TrimSpace(f.StudentID)
	f.Course = Course(strings.TrimSpace(string(f.Course)))
	f.Address = strings.TrimSpace(f.Address)
	f.ContactNumber = strings.TrimSpace(f.ContactNumber)
	f.Birthdate = strings.TrimSpace(f.Birthdate)
	return f
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists the fields that failed validation, keyed by their
// wire name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

// Validate checks f without building a command.
func (f Fields) Validate() error {
	err := validate.Struct(f.trimmed())
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fe.Field() + " must be a date like 2001-09-30"
	case "min", "max":
		return fmt.Sprintf("%s must be between 5 and 500", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// UpdateCommand is a validated profile update. It can only be built by
// NewUpdateCommand, so every update carries the full identity.
type UpdateCommand struct {
	identity Identity
	fields   Fields
}

// NewUpdateCommand validates identity and fields. A blank identity part
// fails with ErrIdentityMissing; invalid fields fail with *ValidationError.
func NewUpdateCommand(identity Identity, fields Fields) (UpdateCommand, error) {
	if missing := identity.missing(); len(missing) > 0 {
		return UpdateCommand{}, fmt.Errorf("%w: missing %s", ErrIdentityMissing, strings.Join(missing, ", "))
	}
	if err := fields.Validate(); err != nil {
		return UpdateCommand{}, err
	}
	return UpdateCommand{identity: identity, fields: fields.trimmed()}, nil
}

// Identity returns the identity the command was built with.
func (c UpdateCommand) Identity() Identity { return c.identity }

// Fields returns the validated fields.
func (c UpdateCommand) Fields() Fields { return c.fields }

// MarshalJSON renders the full profile payload. A zero command refuses to
// marshal rather than send a profile without identity.
func (c UpdateCommand) MarshalJSON() ([]byte, error) {
	if missing := c.identity.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIdentityMissing, strings.Join(missing, ", "))
	}
	return json.Marshal(struct {
		UserID   int64  `json:"userId"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Fields
	}{
		UserID:   c.identity.UserID,
		Username: c.identity.Username,
		Email:    c.identity.Email,
		Fields:   c.fields,
	})
}
