package storage

import (
	"context"
	"log/slog"

	"github.com/aurosystems/ragkit/core"
)

// DeleteDocumentCascade removes a document's chunks and then the document
// itself. The two steps are independent: a failure in the chunk step does not
// abort the document step, and vice versa. The report carries both outcomes
// so a caller can surface partial failures honestly instead of collapsing
// them into a single error.
func DeleteDocumentCascade(ctx context.Context, chunks ChunkStore, docs DocumentStore, documentID string) core.DeletionReport {
	report := core.DeletionReport{DocumentID: documentID}

	n, err := chunks.DeleteByDocument(ctx, documentID)
	report.ChunksDeleted = n
	report.ChunkErr = err
	if err != nil {
		slog.Warn("chunk deletion failed, continuing with document", "documentID", documentID, "err", err)
	}

	report.DocumentErr = docs.DeleteDocument(ctx, documentID)

	return report
}
