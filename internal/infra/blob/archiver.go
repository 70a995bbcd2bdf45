package blob

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

// Archiver writes raw submissions straight to the object store.
type Archiver struct {
	Store usecase.ObjectStore
}

func NewArchiver(store usecase.ObjectStore) *Archiver {
	return &Archiver{Store: store}
}

func (a *Archiver) Archive(ctx context.Context, doc usecase.ArchiveDocument) error {
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	return a.Store.Put(ctx, usecase.ArchiveKey(&doc.Lead), body, usecase.PutOptions{
		ContentType: "application/json",
		Metadata: map[string]string{
			"conferenceId": doc.Lead.ConferenceID,
			"leadId":       doc.Lead.LeadID,
			"capturedAt":   entity.FormatTimestamp(doc.Lead.CreatedAt),
		},
	})
}
