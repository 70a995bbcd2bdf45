package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	exportPageSize = 500
	ExportLinkTTL  = time.Hour
)

type ExportLeadsUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Store  ObjectStore
	Signer LinkSigner
	Logger *slog.Logger
	Now    func() time.Time
}

func NewExportLeadsUseCase(repo entity.LeadRepositoryInterface, store ObjectStore, signer LinkSigner, logger *slog.Logger) *ExportLeadsUseCase {
	return &ExportLeadsUseCase{Repo: repo, Store: store, Signer: signer, Logger: logger, Now: time.Now}
}

func (uc *ExportLeadsUseCase) Execute(ctx context.Context, in ExportInput) (*ExportOutput, error) {
	format := NormalizeFormat(in.Format)

	leads, err := uc.fetchAll(ctx, in.Filters.ConferenceID)
	if err != nil {
		return nil, err
	}
	leads = ApplyFilters(leads, in.Filters)

	if len(leads) == 0 {
		return &ExportOutput{Success: true, Message: "No leads found matching filters", Count: 0}, nil
	}

	var body []byte
	contentType := "text/csv"
	if format == FormatJSON {
		body, err = RenderJSON(leads)
		contentType = "application/json"
	} else {
		body, err = RenderCSV(leads)
	}
	if err != nil {
		return nil, internal("failed to render export", err)
	}

	now := uc.Now().UTC()
	fileName, key := ExportKey(now, format)

	filters, err := json.Marshal(in.Filters)
	if err != nil {
		return nil, internal("failed to encode filters", err)
	}
	err = uc.Store.Put(ctx, key, body, PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"exportedAt": entity.FormatTimestamp(now),
			"count":      strconv.Itoa(len(leads)),
			"filters":    string(filters),
		},
	})
	if err != nil {
		return nil, internal("failed to store export", err)
	}

	url, err := uc.Signer.SignURL(key, ExportLinkTTL)
	if err != nil {
		return nil, internal("failed to sign download link", err)
	}

	uc.Logger.Info("export generated", "key", key, "count", len(leads), "format", format)

	return &ExportOutput{
		Success:     true,
		DownloadURL: url,
		FileName:    fileName,
		Count:       len(leads),
		ExpiresIn:   int(ExportLinkTTL / time.Second),
	}, nil
}

// fetchAll follows every cursor; a conference filter narrows the read to
// that partition.
func (uc *ExportLeadsUseCase) fetchAll(ctx context.Context, conferenceID string) ([]entity.Lead, error) {
	var all []entity.Lead
	cursor := ""
	for {
		req := entity.PageRequest{Limit: exportPageSize, Cursor: cursor}
		var page *entity.Page
		var err error
		if conferenceID != "" {
			page, err = uc.Repo.QueryByConference(ctx, conferenceID, req)
		} else {
			page, err = uc.Repo.ScanAll(ctx, req)
		}
		if err != nil {
			return nil, storeError(err, "Lead not found")
		}
		all = append(all, page.Leads...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// ApplyFilters keeps the leads matching every supplied filter. Date bounds
// compare the fixed-width createdAt text, both ends inclusive.
func ApplyFilters(leads []entity.Lead, f ExportFilters) []entity.Lead {
	out := make([]entity.Lead, 0, len(leads))
	for _, l := range leads {
		if f.Status != "" && string(l.Status) != f.Status {
			continue
		}
		if f.BusinessType != "" && l.BusinessType != f.BusinessType {
			continue
		}
		if f.HasNotes && strings.TrimSpace(l.AdminNotes) == "" {
			continue
		}
		if f.ConsentMarketing != nil && l.ConsentMarketing != *f.ConsentMarketing {
			continue
		}
		created := entity.FormatTimestamp(l.CreatedAt)
		if f.DateFrom != "" && created < f.DateFrom {
			continue
		}
		if f.DateTo != "" && created > f.DateTo {
			continue
		}
		if len(f.Tags) > 0 && !overlaps(l.Tags, f.Tags) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func overlaps(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

// ExportKey returns the file name and the object key for an export made at t.
func ExportKey(t time.Time, format string) (string, string) {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(entity.FormatTimestamp(t))
	fileName := fmt.Sprintf("export-%s.%s", stamp, format)
	key := fmt.Sprintf("exports/%04d/%02d/%02d/%s", t.Year(), t.Month(), t.Day(), fileName)
	return fileName, key
}
