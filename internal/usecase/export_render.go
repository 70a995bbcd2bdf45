package usecase

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// NormalizeFormat maps a requested export format to csv (the default) or
// json. Anything that is not csv renders as json.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return FormatCSV
	default:
		return FormatJSON
	}
}

var CSVHeader = []string{
	"LeadID", "ConferenceID", "CreatedAt", "Status",
	"FirstName", "LastName", "Email", "Phone", "Company", "Role",
	"BusinessType", "Interests", "TripWindow", "GroupSize", "Notes",
	"ConsentContact", "ConsentMarketing", "Tags", "AdminNotes",
	"UTM_Source", "UTM_Medium", "UTM_Campaign",
}

const listSeparator = "; "

// RenderCSV writes one header row and one row per lead; quoting follows RFC 4180.
func RenderCSV(leads []entity.Lead) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for i := range leads {
		if err := w.Write(csvRow(&leads[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvRow(l *entity.Lead) []string {
	return []string{
		l.LeadID,
		l.ConferenceID,
		entity.FormatTimestamp(l.CreatedAt),
		string(l.Status),
		l.FirstName,
		l.LastName,
		l.Email,
		l.Phone,
		l.Company,
		l.Role,
		l.BusinessType,
		strings.Join(l.Interests, listSeparator),
		l.TripWindow,
		strconv.Itoa(l.GroupSize),
		l.Notes,
		strconv.FormatBool(l.ConsentContact),
		strconv.FormatBool(l.ConsentMarketing),
		strings.Join(l.Tags, listSeparator),
		l.AdminNotes,
		l.UTMSource,
		l.UTMMedium,
		l.UTMCampaign,
	}
}

func RenderJSON(leads []entity.Lead) ([]byte, error) {
	if leads == nil {
		leads = []entity.Lead{}
	}
	return json.MarshalIndent(leads, "", "  ")
}
