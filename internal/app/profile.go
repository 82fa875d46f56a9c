package app

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or complete your profile",
	}
	cmd.AddCommand(newProfileShowCmd(), newProfileCompleteCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your profile and whether it is complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gate := profile.NewGate(client, sess, guard)
			if _, err := gate.Load(cmd.Context()); err != nil {
				return explain(gate.Err(), err)
			}
			p := gate.Profile()
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"profile":  p,
					"complete": gate.State() == profile.Complete,
					"missing":  profile.Missing(p),
				})
			}
			printProfile(p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

type profileFlags struct {
	fullname  string
	role      string
	studentID string
	age       int
	course    string
	address   string
	contact   string
	birthdate string
}

var profileFlagNames = []string{"fullname", "role", "student-id", "age", "course", "address", "contact", "birthdate"}

func (f profileFlags) apply(in profile.Fields, changed func(string) bool) profile.Fields {
	if changed("fullname") {
		in.Fullname = f.fullname
	}
	if changed("role") {
		in.Role = profile.Role(f.role)
	}
	if changed("student-id") {
		in.StudentID = f.studentID
	}
	if changed("age") {
		in.Age = f.age
	}
	if changed("course") {
		in.Course = profile.Course(f.course)
	}
	if changed("address") {
		in.Address = f.address
	}
	if changed("contact") {
		in.ContactNumber = f.contact
	}
	if changed("birthdate") {
		in.Birthdate = f.birthdate
	}
	return in
}

func newProfileCompleteCmd() *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:     "complete",
		Aliases: []string{"edit"},
		Short:   "Fill in your profile",
		Long: `Fill in the profile fields the library needs before you can borrow:
full name, role, course, address and birthdate. Without flags on a
terminal, a form pre-filled with your current values is shown.

Roles:   Student, Faculty/Staff, Guest
Courses: N/A, BSIT, BSCPE, BSArch, BSMT, BSDS`,
		Example: `  libctl profile complete
  libctl profile complete --fullname "Alice Liddell" --role Student --course BSIT \
      --address "1 Rabbit Hole" --birthdate 2003-05-04`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireLogin(); err != nil {
				return err
			}
			gate := profile.NewGate(client, sess, guard)
			if _, err := gate.Load(cmd.Context()); err != nil {
				return explain(gate.Err(), err)
			}
			current := gate.Profile()

			changed := cmd.Flags().Changed
			fields := flags.apply(profile.FieldsOf(current), changed)
			if !anyChanged(changed, profileFlagNames) {
				if !tui.ShouldUseTUI(cmd) {
					return fmt.Errorf("nothing to change; pass field flags or run on a terminal")
				}
				var err error
				fields, err = tui.RunProfileForm(fields, profile.Missing(current))
				if errors.Is(err, tui.ErrCanceled) {
					warn("Canceled")
					return nil
				}
				if err != nil {
					return err
				}
			}

			command, err := gate.Command(fields)
			if err != nil {
				return explain(profile.SubmitMessage(err), err)
			}
			if _, err := gate.Submit(cmd.Context(), command); err != nil {
				return explain(profile.SubmitMessage(err), err)
			}
			ok("%s", profile.SubmitMessage(nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.fullname, "fullname", "", "Full name")
	cmd.Flags().StringVar(&flags.role, "role", "", "Student, Faculty/Staff or Guest")
	cmd.Flags().StringVar(&flags.studentID, "student-id", "", "Student ID")
	cmd.Flags().IntVar(&flags.age, "age", 0, "Age")
	cmd.Flags().StringVar(&flags.course, "course", "", "N/A, BSIT, BSCPE, BSArch, BSMT or BSDS")
	cmd.Flags().StringVar(&flags.address, "address", "", "Address")
	cmd.Flags().StringVar(&flags.contact, "contact", "", "Contact number")
	cmd.Flags().StringVar(&flags.birthdate, "birthdate", "", "Birthdate (YYYY-MM-DD)")
	return cmd
}
