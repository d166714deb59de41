package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ressarcimento/internal/core"
	"ressarcimento/internal/ledger"
	"ressarcimento/internal/log"
	"ressarcimento/internal/spreadsheet"
)

// maxUploadBytes caps an imported workbook.
const maxUploadBytes = 10 << 20

func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), storeTimeout)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldOperation, log.OpRender,
			log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
	}
}

func (s *Server) weekFor(r *http.Request) weekView {
	day := ParseWeekDay(r.URL.Query(), s.now())
	return newWeekView(day, s.ledger.Week(day), s.exportPrefix)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Today:   core.DateOf(s.now()).ISO(),
		Load:    newLoadView(s.ledger.LastLoad()),
		Records: newRecordViews(s.ledger.Records()),
		Week:    s.weekFor(r),
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleRecordsPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "records", newRecordViews(s.ledger.Records()))
}

func (s *Server) handleWeekPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "week", s.weekFor(r))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Formato de requisição inválido").Write(w)
		return
	}

	input := ParseRecordInput(parser)
	rec, errResp := input.Record()
	if errResp != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected record",
			"date", input.Date, "amount", input.Amount)
		errResp.Write(w)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	index, err := s.ledger.Append(ctx, rec)
	if err != nil {
		s.mutationError(w, r, log.OpAppend, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogRecordAdded(r.Context(), index,
		rec.Date.String(), rec.ClubID, rec.ClubName, rec.Amount.StringFixed(2), rec.Responsible)

	NewHTMXResponse().
		TriggerRecordsChanged(s.ledger.Len()).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Ressarcimento registrado: %s, %s", rec.ClubName, core.FormatReais(rec.Amount))).
		BodyHTML("").
		Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	index, errResp := ParseIndex(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	removed, err := s.ledger.Delete(ctx, index)
	if err != nil {
		s.mutationNotice(w, r, log.OpDelete, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Record deleted",
		log.FieldIndex, index,
		"club_name", removed.ClubName,
		"amount", removed.Amount.StringFixed(2))

	NewHTMXResponse().
		TriggerRecordsChanged(s.ledger.Len()).
		TriggerSuccessNotification("Ressarcimento removido").
		Write(w)
}

func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.ledger.Clear(ctx); err != nil {
		s.mutationNotice(w, r, log.OpClear, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Records cleared")

	NewHTMXResponse().
		TriggerRecordsChanged(0).
		TriggerSuccessNotification("Todos os ressarcimentos foram removidos").
		Write(w)
}

func (s *Server) handleImportRecords(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		BadRequestError("Envie uma planilha .xlsx de até 10 MB").Write(w)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		BadRequestError("Arquivo ausente").Write(w)
		return
	}
	defer file.Close()

	records, err := spreadsheet.ReadRecords(file)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rejected import",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		importError(err).Write(w)
		return
	}
	if len(records) == 0 {
		UnprocessableEntityError("A planilha não contém ressarcimentos").Write(w)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	if err := s.ledger.AppendAll(ctx, records); err != nil {
		s.mutationError(w, r, log.OpImport, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Records imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(records))

	NewHTMXResponse().
		TriggerRecordsChanged(s.ledger.Len()).
		TriggerSuccessNotification(fmt.Sprintf("%d ressarcimentos importados", len(records))).
		BodyHTML("").
		Write(w)
}

func importError(err error) *HTMXResponseBuilder {
	var rowErr *spreadsheet.RowError
	switch {
	case errors.Is(err, spreadsheet.ErrBadHeader):
		return UnprocessableEntityError("Cabeçalho inválido: esperado DATA, ID CLUBE, NOME CLUBE, VALOR, RESPONSÁVEL")
	case errors.As(err, &rowErr):
		field := "dados inválidos"
		if errors.Is(rowErr.Err, core.ErrInvalidAmount) {
			field = "valor inválido"
		} else if errors.Is(rowErr.Err, core.ErrInvalidDate) {
			field = "data inválida"
		}
		return UnprocessableEntityError(fmt.Sprintf("Linha %d: %s. Nenhum registro foi importado.", rowErr.Row, field))
	default:
		return UnprocessableEntityError("Não foi possível ler a planilha")
	}
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	res := s.ledger.Reload(ctx)
	if res.Failed() {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Reload failed",
			log.FieldError, res.Err,
			log.FieldOperation, log.OpReload)
		ServiceUnavailableError("Falha ao carregar os dados: " + res.Err.Error()).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger reloaded",
		"status", res.Status.String(), log.FieldCount, res.Count)
	NewHTMXResponse().Refresh().Write(w)
}

// mutationFailure maps ledger errors to a status and a user-facing message.
func (s *Server) mutationFailure(r *http.Request, op string, err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return http.StatusNotFound, "Ressarcimento não encontrado"
	case errors.Is(err, ledger.ErrUnavailable):
		return http.StatusServiceUnavailable, "Dados indisponíveis: recarregue antes de alterar"
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Valor inválido"
	case errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "Data inválida"
	default:
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
			"Failed to save records", err, log.ComponentLedger, op, nil)
		return http.StatusInternalServerError, "Erro ao salvar"
	}
}

// mutationError answers with an error fragment for forms that swap the response.
func (s *Server) mutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ErrorResponse(s.mutationFailure(r, op, err)).Write(w)
}

// mutationNotice answers buttons that swap nothing with an error notification.
func (s *Server) mutationNotice(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := s.mutationFailure(r, op, err)
	NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(msg).
		Write(w)
}
