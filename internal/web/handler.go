// internal/web/handler.go
//
// Medcost – browser-facing HTTP surface.
//
// Context
//   The web surface renders the form for one visitor's Controller and turns
//   a POST into a Begin call.  The POST answers with a 303 back to the form
//   straight away (post/redirect/get); while the request is in flight the
//   page shows the disabled busy button and refreshes itself until the
//   Outcome settles.
//
// Routes
//   GET  /        form, inline diagnostics, result panel
//   POST /        submit (CSRF checked), then 303 → /
//   GET  /state   JSON {values, errors, busy, outcome, display}
//   GET  /healthz liveness
//
//------------------------------------------------------------------------------

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/medcost/internal/controller"
	"github.com/yanizio/medcost/internal/form"
	"github.com/yanizio/medcost/internal/session"
)

// Handler serves the form for every visitor.
type Handler struct {
	def     *form.FormDef
	store   *session.Store
	signer  *form.Signer
	log     *zap.SugaredLogger
	refresh int
}

// New wires a Handler.  refresh is the busy-page poll interval in seconds.
func New(def *form.FormDef, store *session.Store, signer *form.Signer, log *zap.SugaredLogger, refresh int) *Handler {
	if log == nil {
		log = zap.S()
	}
	if refresh <= 0 {
		refresh = 1
	}
	return &Handler{def: def, store: store, signer: signer, log: log, refresh: refresh}
}

// Routes mounts the handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.submit)
	r.Get("/state", h.state)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctrl := h.store.Ensure(w, r)
	h.render(w, ctrl.State(), http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	snap, err := form.ParseSubmission(h.def, r)
	if err != nil {
		http.Error(w, "bad form body", http.StatusBadRequest)
		return
	}
	if !h.signer.Verify(r.PostForm.Get("csrf_token")) {
		h.log.Warnw("csrf token rejected", "remote", r.RemoteAddr)
		http.Error(w, "Security token invalid.  Please reload the page and try again.", http.StatusForbidden)
		return
	}

	ctrl := h.store.Ensure(w, r)

	switch _, err := ctrl.Begin(r.Context(), snap); {
	case err == nil, errors.Is(err, controller.ErrInvalid), errors.Is(err, controller.ErrBusy):
		// State carries diagnostics, busy, or the pending outcome.
	default:
		h.log.Errorw("submit failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// statePayload is the JSON shape of GET /state.
type statePayload struct {
	controller.State
	Display string `json:"display"`
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	st := h.store.Ensure(w, r).State()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(statePayload{State: st, Display: st.Outcome.Display()})
}

func (h *Handler) render(w http.ResponseWriter, st controller.State, status int) {
	tok, err := h.signer.Token()
	if err != nil {
		h.log.Errorw("csrf token generation failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page, err := form.RenderPage(h.def, ViewOf(st, tok, h.refresh))
	if err != nil {
		h.log.Errorw("render failed", "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

// ViewOf maps controller state onto the renderer's View.  The result panel
// appears only once a submission has settled.
func ViewOf(st controller.State, csrf string, refresh int) form.View {
	return form.View{
		CSRFToken:      csrf,
		Values:         st.Values,
		Errors:         st.Errors,
		Busy:           st.Busy,
		ShowResult:     st.Outcome.Settled(),
		ResultText:     st.Outcome.Display(),
		ResultError:    st.Outcome.Kind == controller.Failure,
		RefreshSeconds: refresh,
	}
}
