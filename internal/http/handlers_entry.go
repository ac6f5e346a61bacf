package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/workflow"
)

// formView feeds the entry form used for confirmation and for edits.
type formView struct {
	Action     string
	Target     string
	Submit     string
	ID         int64
	Values     map[string]string
	Problems   []string
	Categories []string
	// Discard is set on the confirmation form only.
	Discard    bool
}

func draftValues(d core.DraftEntry) map[string]string {
	return map[string]string{
		FieldLogDate:     d.LogDate.String(),
		FieldActivity:    d.Activity,
		FieldAmount:      d.Amount.StringFixed(core.AmountScale),
		FieldEntity:      d.Entity,
		FieldPaymentMode: d.PaymentMode,
		FieldCategory:    d.Category.String(),
		FieldRemark:      d.Remark,
	}
}

// submittedValues echoes a rejected form back so edits are not lost.
func submittedValues(form url.Values) map[string]string {
	out := make(map[string]string)
	for _, k := range []string{FieldLogDate, FieldActivity, FieldAmount, FieldEntity, FieldPaymentMode, FieldCategory, FieldRemark} {
		out[k] = sanitizeInput(form.Get(k))
	}
	return out
}

func confirmForm(values map[string]string, problems []string) formView {
	return formView{
		Action:     "/entries",
		Target:     "#draft",
		Submit:     "Save entry",
		Values:     values,
		Problems:   problems,
		Categories: core.CategoryNames(),
		Discard:    true,
	}
}

type indexView struct {
	User  string
	Today string
	Draft *formView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := indexView{
		User:  ownerFrom(r.Context()),
		Today: core.DateOf(s.now()).String(),
	}
	if d := sessionFrom(r.Context()).Draft(); d != nil {
		f := confirmForm(draftValues(*d), nil)
		view.Draft = &f
	}
	s.render(w, r, nil, "index.html", view)
}

// handleAnalyze extracts a draft from free text. A failure leaves the user
// on the input step with an error box.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}

	outcome := s.flow.Analyze(ctx, sessionFrom(ctx), p.Get("text"))
	if !outcome.OK() {
		UnprocessableEntityError(outcome.Message).Write(w)
		return
	}
	s.render(w, r, nil, "draft_form", confirmForm(draftValues(*outcome.Draft), nil))
}

// handleConfirm saves the submitted form, which may differ from the draft
// in any field.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}

	d, err := ParseDraftForm(r.PostForm)
	var fe *FormError
	if errors.As(err, &fe) {
		f := confirmForm(submittedValues(r.PostForm), fe.Problems)
		s.render(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity).Header("HX-Retarget", f.Target),
			"draft_form", f)
		return
	}

	owner := ownerFrom(ctx)
	e, err := s.flow.Confirm(ctx, sessionFrom(ctx), owner, d)
	switch {
	case errors.Is(err, workflow.ErrNoPendingDraft):
		WarningResponse("There is no pending entry to save. Analyze a description first.").
			TriggerDraftCleared().Write(w)
		return
	case errors.Is(err, workflow.ErrConfirmInProgress):
		WarningResponse("This entry is already being saved.").Write(w)
		return
	case err != nil:
		s.logStoreError(r, "Failed to save entry", err, applog.OpConfirm)
		InternalServerError("Could not save the entry. Your draft is kept, please try again.").Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogEntryMutation(ctx, applog.OpCreate, owner, e.ID, e.Category.String(), e.LogDate.String())
	NewHTMXResponse().
		TriggerEntrySaved(e.ID).
		Notice(NoticeSuccess, fmt.Sprintf("Saved %q: %s on %s (%s).",
			e.Activity, formatCurrency(s.currency, e.Amount), e.LogDate, e.Category)).
		Write(w)
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	s.flow.Discard(sessionFrom(r.Context()))
	NewHTMXResponse().TriggerDraftCleared().Notice(NoticeInfo, "Draft discarded.").Write(w)
}

func (s *Server) logStoreError(r *http.Request, msg string, err error, op string) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), msg, err,
		applog.ComponentHTTP, op, applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
}
