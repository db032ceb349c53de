package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/iho/gardenledger/internal/adapter/http/dto"
	"github.com/iho/gardenledger/internal/adapter/snapshot"
)

// MaxSnapshotBytes caps the size of an imported snapshot document.
const MaxSnapshotBytes = 10 << 20

// SnapshotHandler exports and imports the whole ledger.
type SnapshotHandler struct {
	ledger LedgerService
	codec  *snapshot.Codec
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(ledger LedgerService, codec *snapshot.Codec) *SnapshotHandler {
	return &SnapshotHandler{ledger: ledger, codec: codec}
}

// Export writes the snapshot document as a download.
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ledger.Export(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := h.codec.Encode(&buf, snap); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode snapshot", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, snapshot.FileName(snap.ExportDate)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Import replaces the sections present in the uploaded document.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSnapshotBytes)

	snap, err := h.codec.Decode(r.Body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.ledger.Import(r.Context(), snap); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ImportResponse{
		Version:          snap.Version,
		JournalsReplaced: snap.Journals != nil,
		BalancesReplaced: snap.Balances != nil,
		JournalCount:     len(snap.Journals),
		BalanceCount:     len(snap.Balances),
	})
}
