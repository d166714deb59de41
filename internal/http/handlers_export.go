package http

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"ressarcimento/internal/log"
	"ressarcimento/internal/spreadsheet"
)

// handleExportWeekly streams the selected week as an xlsx download.
// An empty week is refused; the page only offers the link when there is data.
func (s *Server) handleExportWeekly(w http.ResponseWriter, r *http.Request) {
	day := ParseWeekDay(r.URL.Query(), s.now())
	summary := s.ledger.Week(day)
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentExport)

	if summary.Empty() {
		s.metrics.IncrementExport(true, nil)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("Nenhum ressarcimento nesta semana"))
		return
	}

	var buf bytes.Buffer
	if err := spreadsheet.WriteWeekly(&buf, summary); err != nil {
		s.metrics.IncrementExport(false, err)
		logger.ErrorContext(r.Context(), "Export failed", log.FieldError, err, log.FieldOperation, log.OpExport)
		http.Error(w, "Erro ao gerar a planilha", http.StatusInternalServerError)
		return
	}
	s.metrics.IncrementExport(false, nil)

	filename := spreadsheet.Filename(s.exportPrefix, summary.Window)
	w.Header().Set("Content-Type", spreadsheet.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	logger.InfoContext(r.Context(), "Weekly export served",
		log.FieldOperation, log.OpExport,
		log.FieldFilename, filename,
		log.FieldWeekStart, summary.Window.Start.String(),
		log.FieldWeekEnd, summary.Window.End.String(),
		log.FieldCount, summary.Count,
		"total", summary.Total.StringFixed(2))
}
