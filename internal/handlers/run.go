package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/avriza/simrunner/internal/runner"
	"github.com/avriza/simrunner/internal/service"
	"github.com/avriza/simrunner/internal/store/model"
)

type RunHandler struct {
	svc *service.RunService
}

func NewRunHandler(svc *service.RunService) *RunHandler {
	return &RunHandler{svc: svc}
}

func (h *RunHandler) RegisterRoutes(router chi.Router) {
	router.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", h.createRun)
		r.Get("/", h.listRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getRun)
			r.Delete("/", h.cancelRun)
			r.Get("/result", h.getResult)
		})
	})
}

func (h *RunHandler) createRun(w http.ResponseWriter, r *http.Request) {
	form := &CreateRunForm{}
	if err := render.Bind(r, form); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}

	run, err := h.svc.CreateRun(r.Context(), form.RunRequest)
	if err != nil {
		var submissionErr *runner.SubmissionError
		if errors.As(err, &submissionErr) {
			renderError(w, r, http.StatusUnprocessableEntity, err)
			return
		}
		renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, RunReply{Run: run})
}

func (h *RunHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.ListRuns(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	_ = render.Render(w, r, RunListReply{Runs: runs})
}

func (h *RunHandler) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}

	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, RunReply{Run: run})
}

func (h *RunHandler) cancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}

	run, err := h.svc.CancelRun(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, RunReply{Run: run})
}

func (h *RunHandler) getResult(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}

	result, err := h.svc.GetResult(r.Context(), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}
	_ = render.Render(w, r, ResultReply{Result: result})
}

func runID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *service.ErrRunNotFound
	var notTerminal *service.ErrRunNotTerminal
	switch {
	case errors.As(err, &notFound):
		renderError(w, r, http.StatusNotFound, err)
	case errors.As(err, &notTerminal):
		renderError(w, r, http.StatusConflict, err)
	default:
		renderError(w, r, http.StatusInternalServerError, err)
	}
}

func renderError(w http.ResponseWriter, r *http.Request, code int, err error) {
	render.Status(r, code)
	_ = render.Render(w, r, ErrorReply{Error: err.Error()})
}

type CreateRunForm struct {
	runner.RunRequest
}

func (f *CreateRunForm) Bind(r *http.Request) error {
	if f.ScriptPath == "" {
		return errors.New("scriptPath is required")
	}
	return nil
}

type RunReply struct {
	Run *model.Run `json:"run"`
}

type RunListReply struct {
	Runs []model.Run `json:"runs"`
}

type ResultReply struct {
	Result *runner.RunResult `json:"result"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

func (RunReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (RunListReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (ResultReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (ErrorReply) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
