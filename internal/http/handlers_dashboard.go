package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"tracker/internal/analytics"
	"tracker/internal/core"
	"tracker/internal/export"
	applog "tracker/internal/log"
	"tracker/internal/storage"
)

type dashboardView struct {
	analytics.Dashboard
	// BudgetMonth names the month the budget bar measures.
	BudgetMonth string
	ExportCSV   string
	ExportXLSX  string
}

func exportURL(format, selection string) string {
	q := url.Values{"format": {format}}
	if selection != analytics.AllTime {
		q.Set("month", selection)
	}
	return "/export?" + q.Encode()
}

// handleDashboard re-reads every row of the caller and derives the view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.entries.List(ctx, ownerFrom(ctx))
	if err != nil {
		s.logStoreError(r, "Failed to load entries", err, applog.OpList)
		InternalServerError("Could not load your entries.").Write(w)
		return
	}

	selection := ParseMonthSelection(r.URL.Query(), analytics.MonthOptions(entries))
	dash := analytics.Build(entries, selection, sessionFrom(ctx).Budget(), s.now())

	budgetMonth := selection
	if selection == analytics.AllTime {
		budgetMonth = analytics.MonthLabel(core.DateOf(s.now()))
	}

	s.render(w, r, nil, "dashboard", dashboardView{
		Dashboard:   dash,
		BudgetMonth: budgetMonth,
		ExportCSV:   exportURL(export.FormatCSV, selection),
		ExportXLSX:  exportURL(export.FormatXLSX, selection),
	})
}

func editForm(id int64, values map[string]string, problems []string) formView {
	return formView{
		Action:     fmt.Sprintf("/entries/%d", id),
		Target:     "#editor",
		Submit:     "Update entry",
		ID:         id,
		Values:     values,
		Problems:   problems,
		Categories: core.CategoryNames(),
	}
}

func notOwnedMessage(id int64) string {
	return fmt.Sprintf("Entry #%d was not found or is not yours.", id)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseEntryID(mux.Vars(r)["id"])
	if err != nil {
		BadRequestError("Invalid entry id.").Write(w)
		return
	}

	e, err := s.entries.Get(ctx, id, ownerFrom(ctx))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		WarningResponse(notOwnedMessage(id)).Write(w)
		return
	case err != nil:
		s.logStoreError(r, "Failed to load entry", err, applog.OpRead)
		InternalServerError("Could not load the entry.").Write(w)
		return
	}
	s.render(w, r, nil, "edit_form", editForm(id, draftValues(e.Draft()), nil))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseEntryID(mux.Vars(r)["id"])
	if err != nil {
		BadRequestError("Invalid entry id.").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}

	d, err := ParseDraftForm(r.PostForm)
	var fe *FormError
	if errors.As(err, &fe) {
		f := editForm(id, submittedValues(r.PostForm), fe.Problems)
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity).Header("HX-Retarget", f.Target),
			"edit_form", f)
		return
	}

	owner := ownerFrom(ctx)
	res, err := s.entries.Update(ctx, id, owner, d)
	if err != nil {
		s.logStoreError(r, "Failed to update entry", err, applog.OpUpdate)
		InternalServerError("Could not update the entry.").Write(w)
		return
	}
	if res != core.MutationApplied {
		WarningResponse(notOwnedMessage(id)).Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogEntryMutation(ctx, applog.OpUpdate, owner, id, d.Category.String(), d.LogDate.String())
	NewHTMXResponse().
		TriggerEntryUpdated(id).
		Notice(NoticeSuccess, fmt.Sprintf("Entry #%d updated.", id)).
		Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := ParseEntryID(mux.Vars(r)["id"])
	if err != nil {
		BadRequestError("Invalid entry id.").Write(w)
		return
	}

	owner := ownerFrom(ctx)
	res, err := s.entries.Delete(ctx, id, owner)
	if err != nil {
		s.logStoreError(r, "Failed to delete entry", err, applog.OpDelete)
		InternalServerError("Could not delete the entry.").Write(w)
		return
	}
	if res != core.MutationApplied {
		WarningResponse(notOwnedMessage(id)).Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogEntryMutation(ctx, applog.OpDelete, owner, id, "", "")
	NewHTMXResponse().
		TriggerEntryDeleted(id).
		Notice(NoticeSuccess, fmt.Sprintf("Entry #%d deleted.", id)).
		Write(w)
}

// handleBudget sets the monthly limit of this browser session only.
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}
	limit, err := core.ParseAmount(p.Get("limit"))
	if err != nil || limit.IsNegative() {
		UnprocessableEntityError("Budget must be a non-negative number.").Write(w)
		return
	}

	sessionFrom(r.Context()).SetBudget(limit)
	NewHTMXResponse().
		TriggerBudgetUpdated().
		Notice(NoticeSuccess, "Monthly budget set to "+formatCurrency(s.currency, limit)+".").
		Write(w)
}

// handleExport downloads the caller's rows for the selected month.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}
	contentType := export.ContentType(format)
	if contentType == "" {
		BadRequestError("Unsupported export format.").Write(w)
		return
	}

	entries, err := s.entries.List(ctx, ownerFrom(ctx))
	if err != nil {
		s.logStoreError(r, "Failed to load entries for export", err, applog.OpExport)
		InternalServerError("Could not export your entries.").Write(w)
		return
	}
	selection := ParseMonthSelection(r.URL.Query(), analytics.MonthOptions(entries))
	rows := analytics.Newest(analytics.Filter(entries, selection))

	name := "logs-all"
	if selection != analytics.AllTime {
		name = "logs-" + strings.ToLower(strings.ReplaceAll(selection, " ", "-"))
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))

	if err := export.Write(w, format, rows); err != nil {
		// Headers are gone by now; the client sees a truncated file.
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Export failed", err,
			applog.ComponentExport, applog.OpExport, applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Entries exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldMonth, selection,
		"format", format,
		"rows", len(rows))
}
