package projection

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

var today = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

func roster() []model.VolunteerApplication {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.VolunteerApplication{
		{
			ID: "a1", VolunteerID: "HC-2026-0003", Status: model.StatusActive, JoiningDate: "2026-03-01", CreatedAt: base.Add(3 * time.Hour),
			Profile: model.Profile{FullName: "Ravi Kumar", Email: "ravi@example.org", Phone: "9000000001", DateOfBirth: "1990-10-19",
				Occupation: model.OccupationOther, OccupationDetail: "Farmer", TimeCommitment: []string{"Weekends", "Evenings"}},
		},
		{
			ID: "a2", Status: model.StatusPending, CreatedAt: base.Add(1 * time.Hour),
			Profile: model.Profile{FullName: "asha Rao", Email: "asha@example.org", Phone: "9000000002", DateOfBirth: "1999-04-12"},
		},
		{
			ID: "a3", VolunteerID: "HC-2026-0001", Status: model.StatusBanned, BanReason: "No-show", JoiningDate: "2026-01-15", CreatedAt: base,
			Profile: model.Profile{FullName: "Meera Iyer", Email: "meera@example.org", Phone: "9000000003", DateOfBirth: "2000-01-01"},
		},
		{
			ID: "a4", VolunteerID: "HC-2026-0002", Status: model.StatusActive, JoiningDate: "2026-02-10", CreatedAt: base.Add(2 * time.Hour),
			Profile: model.Profile{FullName: "Zubin Shah", Email: "zubin@example.org", Phone: "9000000004", DateOfBirth: "1985-06-30"},
		},
	}
}

func project(filter Filter, sort Sort) []Row {
	return Collect(Projector{Now: func() time.Time { return today }}.Project(roster(), filter, sort))
}

func ids(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.VolunteerID)
	}
	return out
}

func TestProject_FiltersByBucket(t *testing.T) {
	rows := project(Filter{Bucket: "active"}, Sort{})
	assert.Equal(t, []string{"HC-2026-0003", "HC-2026-0002"}, ids(rows))

	assert.Len(t, project(Filter{Bucket: "all"}, Sort{}), 4)
	assert.Len(t, project(Filter{}, Sort{}), 4)
	assert.Empty(t, project(Filter{Bucket: "temporary"}, Sort{}))
}

func TestProject_SearchIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"-"}, ids(project(Filter{Search: "ASHA"}, Sort{})))
	assert.Equal(t, []string{"HC-2026-0001"}, ids(project(Filter{Search: "hc-2026-0001"}, Sort{})))
	assert.Equal(t, []string{"HC-2026-0002"}, ids(project(Filter{Search: "0004"}, Sort{})))
	assert.Len(t, project(Filter{Search: "example.org"}, Sort{}), 4)
	assert.Empty(t, project(Filter{Bucket: "pending", Search: "ravi"}, Sort{}))
}

func TestProject_Sorts(t *testing.T) {
	names := func(rows []Row) []string {
		var out []string
		for _, r := range rows {
			out = append(out, r.FullName)
		}
		return out
	}

	assert.Equal(t, []string{"asha Rao", "Meera Iyer", "Ravi Kumar", "Zubin Shah"}, names(project(Filter{}, Sort{Key: SortName})))
	assert.Equal(t, []string{"-", "HC-2026-0001", "HC-2026-0002", "HC-2026-0003"}, ids(project(Filter{}, Sort{Key: SortVolunteerID})))
	assert.Equal(t, []string{"HC-2026-0003", "HC-2026-0002", "HC-2026-0001", "-"}, ids(project(Filter{}, Sort{Key: SortVolunteerID, Desc: true})))
	assert.Equal(t, []string{"HC-2026-0001", "-", "HC-2026-0002", "HC-2026-0003"}, ids(project(Filter{}, Sort{Key: SortCreated})))
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	apps := roster()
	Collect(Project(apps, Filter{}, Sort{Key: SortName}))
	assert.Equal(t, roster(), apps)
}

func TestProject_IsLazy(t *testing.T) {
	seq := Project(roster(), Filter{}, Sort{})
	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestRow_ValuesFollowColumnContract(t *testing.T) {
	rows := project(Filter{Search: "ravi"}, Sort{})
	require.Len(t, rows, 1)

	values := rows[0].Values()
	require.Len(t, values, len(Columns))
	cell := func(col string) string {
		for i, c := range Columns {
			if c == col {
				return values[i]
			}
		}
		t.Fatalf("no column %s", col)
		return ""
	}

	assert.Equal(t, "HC-2026-0003", cell("Volunteer ID"))
	assert.Equal(t, "1990-10-19 (35)", cell("DOB(Age)"))
	assert.Equal(t, "Other (Farmer)", cell("Occupation"))
	assert.Equal(t, "Weekends, Evenings", cell("Time Commitment"))
	assert.Equal(t, "2026-03-01", cell("Joined Date"))
	assert.Equal(t, "active", cell("Status"))
	assert.Equal(t, "", cell("Reason"))

	banned := project(Filter{Bucket: "banned"}, Sort{})
	assert.Equal(t, "No-show", banned[0].Reason)
}

func TestExportParity(t *testing.T) {
	many := roster()
	for i := 0; i < 120; i++ {
		many = append(many, model.VolunteerApplication{
			ID:          fmt.Sprintf("x%d", i),
			VolunteerID: fmt.Sprintf("HC-2025-%04d", 500-i),
			Status:      model.StatusActive,
			Profile:     model.Profile{FullName: fmt.Sprintf("Volunteer %03d", i), DateOfBirth: "1995-05-05"},
		})
	}

	for _, filter := range []Filter{{}, {Bucket: "active"}, {Search: "volunteer 01"}, {Bucket: "banned"}} {
		rows := Collect(Projector{Now: func() time.Time { return today }}.Project(many, filter, Sort{Key: SortName}))
		want := ids(rows)

		var csvBuf, xlsxBuf, pdfBuf bytes.Buffer
		require.NoError(t, WriteCSV(context.Background(), &csvBuf, rows))
		require.NoError(t, WriteXLSX(context.Background(), &xlsxBuf, rows))
		require.NoError(t, WritePDF(context.Background(), &pdfBuf, rows, PDFOptions{Title: "Volunteers", Uncompressed: true}))

		records, err := csv.NewReader(&csvBuf).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, Columns, records[0])
		assert.Equal(t, want, firstColumn(records[1:]))

		book, err := excelize.OpenReader(&xlsxBuf)
		require.NoError(t, err)
		sheet, err := book.GetRows(SheetName)
		require.NoError(t, err)
		require.NoError(t, book.Close())
		assert.Equal(t, Columns, sheet[0])
		assert.Equal(t, want, firstColumn(sheet[1:]))

		assert.Equal(t, want, pdfVolunteerIDs(pdfBuf.String(), want), "filter %+v", filter)
	}
}

func TestWritePDF_LongVolunteerIDPrintedWhole(t *testing.T) {
	apps := roster()
	long := "HC-2026-0003-NORTH-DISTRICT-CHAPTER"
	apps[0].VolunteerID = long
	rows := Collect(Projector{Now: func() time.Time { return today }}.Project(apps, Filter{}, Sort{Key: SortVolunteerID}))

	var pdfBuf bytes.Buffer
	require.NoError(t, WritePDF(context.Background(), &pdfBuf, rows, PDFOptions{Uncompressed: true}))

	doc := pdfBuf.String()
	assert.Contains(t, doc, "("+long+")")
	assert.Equal(t, 1, strings.Count(doc, "(HC-2026-0003"))
	assert.Equal(t, ids(rows), pdfVolunteerIDs(doc, ids(rows)))
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rows := project(Filter{}, Sort{})

	for _, format := range []Format{FormatCSV, FormatXLSX, FormatPDF} {
		err := Write(ctx, &bytes.Buffer{}, format, rows, PDFOptions{})
		require.Error(t, err, format)
		assert.True(t, errorx.IsCancelled(err), format)
		assert.Equal(t, "Cancelled.", errorx.Notify(err))
	}
}

func TestParseFormatAndSortKey(t *testing.T) {
	f, err := ParseFormat("xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = ParseFormat("docx")
	assert.Error(t, err)

	k, err := ParseSortKey("joined")
	require.NoError(t, err)
	assert.Equal(t, SortJoined, k)
	_, err = ParseSortKey("age")
	assert.Error(t, err)
}

func firstColumn(records [][]string) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r[0])
	}
	return out
}

// pdfVolunteerIDs finds each expected id as a text operand in order and checks
// that no other volunteer ids were rendered
func pdfVolunteerIDs(doc string, want []string) []string {
	var found []string
	pos := 0
	minted := 0
	for _, id := range want {
		if strings.HasPrefix(id, "HC-") {
			minted++
		}
		i := strings.Index(doc[pos:], "("+id+")")
		if i < 0 {
			break
		}
		found = append(found, id)
		pos += i + len(id) + 2
	}
	if strings.Count(doc, "(HC-") != minted {
		return nil
	}
	return found
}
