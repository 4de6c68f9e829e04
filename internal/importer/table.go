// Package importer turns spreadsheets and pasted text into leads.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/models"
)

// Format is an accepted upload format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Lead fields a header can map to
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldPropertyAddress = "propertyAddress"
	FieldPropertyPrice   = "propertyPrice"
	FieldPropertyType    = "propertyType"
)

// FormatFromFilename picks the parser by extension
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".xls":
		return "", apperr.Validation("Legacy .xls files are not supported, save as .xlsx or .csv")
	default:
		return "", apperr.Validation("Unsupported file type, expected .csv or .xlsx")
	}
}

// Table is a header row plus data rows. Rows may be shorter than the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Parse reads r in the given format
func Parse(format Format, r io.Reader) (*Table, error) {
	switch format {
	case FormatCSV:
		return ParseCSV(r)
	case FormatXLSX:
		return ParseXLSX(r)
	default:
		return nil, apperr.Validation(fmt.Sprintf("Unsupported format %q", format))
	}
}

// ParseCSV reads comma-delimited text whose first record is the header
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "Could not parse CSV: "+err.Error(), err)
	}
	return newTable(records)
}

// ParseText reads pasted text; the first line holds the headers
func ParseText(text string) (*Table, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("No data provided")
	}
	return ParseCSV(strings.NewReader(text))
}

// ParseXLSX reads the first sheet of a workbook
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "Could not read spreadsheet: "+err.Error(), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation("Spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "Could not read spreadsheet: "+err.Error(), err)
	}
	return newTable(rows)
}

func newTable(records [][]string) (*Table, error) {
	var rows [][]string
	for _, rec := range records {
		if !blank(rec) {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("File is empty")
	}
	if len(rows) == 1 {
		return nil, apperr.Validation("No rows found")
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// MapColumn maps a header to a lead field by case-insensitive substring.
// Rules are tried in order and the first match wins, so "Property Type"
// maps to propertyAddress. It returns "" for unrecognised headers.
func MapColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case h == "":
		return ""
	case strings.Contains(h, "first"):
		return FieldFirstName
	case strings.Contains(h, "last"):
		return FieldLastName
	case strings.Contains(h, "email"):
		return FieldEmail
	case strings.Contains(h, "phone"):
		return FieldPhone
	case strings.Contains(h, "address"), strings.Contains(h, "property"):
		return FieldPropertyAddress
	case strings.Contains(h, "price"):
		return FieldPropertyPrice
	case strings.Contains(h, "type"):
		return FieldPropertyType
	}
	return ""
}

// ErrNoEmailColumn rejects a batch before any row is inserted
var ErrNoEmailColumn = errors.New("no email column detected")

// Leads converts every row. Values are trimmed; when two headers map to the
// same field the rightmost one wins.
func (t *Table) Leads() ([]models.Lead, error) {
	fields := make([]string, len(t.Header))
	hasEmail := false
	for i, h := range t.Header {
		fields[i] = MapColumn(h)
		if fields[i] == FieldEmail {
			hasEmail = true
		}
	}
	if !hasEmail {
		return nil, apperr.Wrap(apperr.CodeValidation, "No email column found", ErrNoEmailColumn)
	}

	leads := make([]models.Lead, 0, len(t.Rows))
	for _, row := range t.Rows {
		var lead models.Lead
		for i, field := range fields {
			if field == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			setField(&lead, field, value)
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func setField(l *models.Lead, field, value string) {
	switch field {
	case FieldFirstName:
		l.FirstName = value
	case FieldLastName:
		l.LastName = value
	case FieldEmail:
		l.Email = value
	case FieldPhone:
		l.Phone = value
	case FieldPropertyAddress:
		l.PropertyAddress = value
	case FieldPropertyPrice:
		l.PropertyPrice = value
	case FieldPropertyType:
		l.PropertyType = value
	}
}
