package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"fintrack/internal/services"
)

// maxUploadBytes bounds an import upload.
const maxUploadBytes = 10 << 20

// handleImport loads a .csv or .xlsx upload. Good rows are committed even
// when others are rejected; the rejections come back as one warning.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			UnprocessableEntityError("File is too large").Write(w)
			return
		}
		UnprocessableEntityError("No file selected").Write(w)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		UnprocessableEntityError("No file selected").Write(w)
		return
	}
	defer file.Close()

	table, err := services.ReadTable(header.Filename, file)
	if err != nil {
		s.writeError(w, r, "import", err)
		return
	}

	res, err := s.deps.Importer.Import(r.Context(), table, services.ImportOptions{})
	if err != nil {
		s.writeError(w, r, "import", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.imported, int64(res.Imported))

	b := NewHTMXResponse().TriggerLedgerChanged().Redirect(r, "/")
	summary := fmt.Sprintf("Imported %d of %d rows from %s", res.Imported, res.Total, header.Filename)
	if len(res.Errors) == 0 {
		b.TriggerSuccessNotification(summary)
	} else {
		b.TriggerWarningNotification(summary + ". " + strings.Join(res.Messages(), "; "))
	}
	b.Write(w)
}
