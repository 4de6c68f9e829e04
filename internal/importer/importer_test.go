package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store/memstore"
)

func TestMapColumn(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"First Name", FieldFirstName},
		{"LAST_NAME", FieldLastName},
		{"E-mail / Email", FieldEmail},
		{" email ", FieldEmail},
		{"Phone Number", FieldPhone},
		{"Street Address", FieldPropertyAddress},
		{"Property", FieldPropertyAddress},
		{"Property Type", FieldPropertyAddress},
		{"Property Price", FieldPropertyAddress},
		{"Asking Price", FieldPropertyPrice},
		{"Type", FieldPropertyType},
		{"Notes", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := MapColumn(tt.header); got != tt.want {
				t.Errorf("MapColumn(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("Leads.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromFilename("leads.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromFilename("leads.xls")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = FormatFromFilename("leads.txt")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestImportText(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	imp := New(s.Leads(), nil)

	text := "First Name,Last Name,Email,Phone,Address,Price,Type,Notes\n" +
		"Ana, Lopez ,ana@example.com,555-1,12 Oak St,$300k,Condo,vip\n" +
		"Bo,,,555-2,,,,\n" +
		"\n" +
		"Cy,Day,cy@example.com\n" +
		"Dup,Lead,ana@example.com,,,,,\n"

	res, err := imp.ImportText(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, res.Errors, 2)

	leads, err := s.Leads().List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	ana := leads[0]
	assert.Equal(t, "Ana", ana.FirstName)
	assert.Equal(t, "Lopez", ana.LastName)
	assert.Equal(t, "ana@example.com", ana.Email)
	assert.Equal(t, "555-1", ana.Phone)
	assert.Equal(t, "12 Oak St", ana.PropertyAddress)
	assert.Equal(t, "$300k", ana.PropertyPrice)
	assert.Equal(t, "Condo", ana.PropertyType)
	assert.NotEmpty(t, ana.ID)
	assert.False(t, ana.CreatedAt.IsZero())

	assert.Equal(t, "cy@example.com", leads[1].Email)
	assert.Empty(t, leads[1].Phone)
}

func TestImportRejectsBatchWithoutEmailColumn(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	imp := New(s.Leads(), nil)

	_, err := imp.ImportText(ctx, "Name,Phone\nAna,555\n")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.ErrorIs(t, err, ErrNoEmailColumn)

	n, err := s.Leads().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportRejectsEmptyInput(t *testing.T) {
	imp := New(memstore.New().Leads(), nil)

	for _, text := range []string{"", "   \n", "Email\n"} {
		_, err := imp.ImportText(context.Background(), text)
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err), "input %q", text)
	}
}

func TestImportRejectsMalformedCSV(t *testing.T) {
	imp := New(memstore.New().Leads(), nil)
	_, err := imp.ImportText(context.Background(), "Email,Name\n\"unterminated,x\n")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestImportRightmostDuplicateHeaderWins(t *testing.T) {
	table := &Table{
		Header: []string{"Email", "Work Email"},
		Rows:   [][]string{{"home@example.com", "work@example.com"}},
	}
	leads, err := table.Leads()
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "work@example.com", leads[0].Email)
}

func TestImportExistingLeadCountsAsFailed(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.Leads().Create(ctx, &models.Lead{Email: "taken@example.com"}))

	res, err := New(s.Leads(), nil).ImportText(ctx, "email\ntaken@example.com\nfree@example.com\n")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Failed)
}

func TestImportFileXLSX(t *testing.T) {
	ctx := context.Background()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"First", "Last", "Email Address", "Price"},
		{"Ana", "Lopez", "ana@example.com", 450000},
		{"Bo", "", "bo@example.com"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s := memstore.New()
	res, err := New(s.Leads(), nil).ImportFile(ctx, "leads.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, res.Failed)

	leads, err := s.Leads().List(ctx)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Ana", leads[0].FirstName)
	assert.Equal(t, "450000", leads[0].PropertyPrice)
	assert.Equal(t, "bo@example.com", leads[1].Email)
}

func TestImportFileCSV(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := New(s.Leads(), nil).ImportFile(ctx, "leads.csv", strings.NewReader("Email,First\na@example.com,A\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
}

func TestImportFileCorruptXLSX(t *testing.T) {
	_, err := New(memstore.New().Leads(), nil).ImportFile(context.Background(), "leads.xlsx", strings.NewReader("not a zip"))
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}
