// Package projection derives the read-only roster view and its exports from a
// list of applications. Nothing here mutates an application.
package projection

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// Columns is the export column contract. Downstream spreadsheets depend on this order.
var Columns = []string{
	"Volunteer ID",
	"Full Name",
	"Email",
	"Phone",
	"Gender",
	"DOB(Age)",
	"Blood Group",
	"Joined Date",
	"Gov ID Type",
	"Interest",
	"Occupation",
	"Skills",
	"Time Commitment",
	"Working Mode",
	"Role Preference",
	"Status",
	"Reason",
}

// Row is one projected application
type Row struct {
	ID             string
	VolunteerID    string
	FullName       string
	Email          string
	Phone          string
	Gender         string
	DOBAge         string
	BloodGroup     string
	JoinedDate     string
	GovIDType      string
	Interest       string
	Occupation     string
	Skills         string
	TimeCommitment string
	WorkingMode    string
	RolePreference string
	Status         model.Status
	Reason         string
}

// Values returns the row's cells in Columns order
func (r Row) Values() []string {
	return []string{
		r.VolunteerID,
		r.FullName,
		r.Email,
		r.Phone,
		r.Gender,
		r.DOBAge,
		r.BloodGroup,
		r.JoinedDate,
		r.GovIDType,
		r.Interest,
		r.Occupation,
		r.Skills,
		r.TimeCommitment,
		r.WorkingMode,
		r.RolePreference,
		string(r.Status),
		r.Reason,
	}
}

// Filter selects applications by status bucket and free-text search
type Filter struct {
	// Bucket is "all", empty, or a status
	Bucket string
	// Search is matched case-insensitively against name, email, phone and volunteer id
	Search string
}

// Matches reports whether app passes the filter
func (f Filter) Matches(app model.VolunteerApplication) bool {
	if f.Bucket != "" && f.Bucket != "all" && !strings.EqualFold(f.Bucket, string(app.Status)) {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	for _, field := range []string{app.FullName, app.Email, app.Phone, app.VolunteerID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// SortKey orders the roster
type SortKey string

const (
	SortNone        SortKey = ""
	SortName        SortKey = "name"
	SortJoined      SortKey = "joined"
	SortCreated     SortKey = "created"
	SortVolunteerID SortKey = "volunteerId"
)

// ParseSortKey accepts the names used on the command line
func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(raw); k {
	case SortNone, SortName, SortJoined, SortCreated, SortVolunteerID:
		return k, nil
	}
	return SortNone, fmt.Errorf("unknown sort key %q (use name, joined, created or volunteerId)", raw)
}

// Sort is a stable ordering; SortNone keeps the API's order
type Sort struct {
	Key  SortKey
	Desc bool
}

// Projector turns applications into rows. Now is used for the age column.
type Projector struct {
	Now func() time.Time
}

// Project filters and sorts apps, then yields rows lazily
func Project(apps []model.VolunteerApplication, filter Filter, sort Sort) iter.Seq[Row] {
	return Projector{}.Project(apps, filter, sort)
}

// Project filters and sorts apps, then yields rows lazily.
// apps is not modified.
func (p Projector) Project(apps []model.VolunteerApplication, filter Filter, sort Sort) iter.Seq[Row] {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	return func(yield func(Row) bool) {
		selected := make([]model.VolunteerApplication, 0, len(apps))
		for _, app := range apps {
			if filter.Matches(app) {
				selected = append(selected, app)
			}
		}
		sortApplications(selected, sort)

		today := now()
		for _, app := range selected {
			if !yield(toRow(app, today)) {
				return
			}
		}
	}
}

// Collect materialises a projection so every export sees the same rows
func Collect(seq iter.Seq[Row]) []Row {
	return slices.Collect(seq)
}

func sortApplications(apps []model.VolunteerApplication, s Sort) {
	var compare func(a, b model.VolunteerApplication) int
	switch s.Key {
	case SortName:
		compare = func(a, b model.VolunteerApplication) int {
			return cmp.Compare(strings.ToLower(a.FullName), strings.ToLower(b.FullName))
		}
	case SortJoined:
		compare = func(a, b model.VolunteerApplication) int {
			return cmp.Compare(a.JoiningDate, b.JoiningDate)
		}
	case SortCreated:
		compare = func(a, b model.VolunteerApplication) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	case SortVolunteerID:
		compare = func(a, b model.VolunteerApplication) int {
			return cmp.Compare(a.VolunteerID, b.VolunteerID)
		}
	default:
		return
	}

	if s.Desc {
		asc := compare
		compare = func(a, b model.VolunteerApplication) int { return asc(b, a) }
	}
	slices.SortStableFunc(apps, compare)
}

func toRow(app model.VolunteerApplication, today time.Time) Row {
	occupation := app.Occupation
	if app.Occupation == model.OccupationOther && app.OccupationDetail != "" {
		occupation = fmt.Sprintf("%s (%s)", app.Occupation, app.OccupationDetail)
	}

	return Row{
		ID:             app.ID,
		VolunteerID:    orDash(app.VolunteerID),
		FullName:       app.FullName,
		Email:          app.Email,
		Phone:          app.Phone,
		Gender:         app.Gender,
		DOBAge:         dobWithAge(app.DateOfBirth, today),
		BloodGroup:     app.BloodGroup,
		JoinedDate:     orDash(app.JoiningDate),
		GovIDType:      app.GovIDType,
		Interest:       app.AreaOfInterest,
		Occupation:     occupation,
		Skills:         app.Skills,
		TimeCommitment: strings.Join(app.TimeCommitment, ", "),
		WorkingMode:    strings.Join(app.WorkingMode, ", "),
		RolePreference: strings.Join(app.RolePreference, ", "),
		Status:         app.Status,
		Reason:         app.Reason(),
	}
}

// dobWithAge renders "1999-04-12 (27)"; an unparseable date is shown as given
func dobWithAge(dob string, today time.Time) string {
	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return dob
	}
	return fmt.Sprintf("%s (%d)", dob, model.AgeInYears(born, today))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
