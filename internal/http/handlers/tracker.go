package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	apierrors "github.com/pribylovaa/metrics-tracker/internal/errors"
	"github.com/pribylovaa/metrics-tracker/internal/models"
)

// --- teams ---

func (h *Handlers) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Tracker.Teams(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, teams)
}

func (h *Handlers) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var in models.Team
	if err := decodeStrict(r, &in); err != nil {
		apierrors.BadRequest(w, r, "invalid json")
		return
	}

	out, err := h.Tracker.CreateTeam(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid id")
		return
	}

	var in models.Team
	if err := decodeStrict(r, &in); err != nil {
		apierrors.BadRequest(w, r, "invalid json")
		return
	}

	out, err := h.Tracker.UpdateTeam(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid id")
		return
	}

	if err := h.Tracker.DeleteTeam(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- metrics ---

func (h *Handlers) ListMetrics(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Tracker.Metrics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ms)
}

func (h *Handlers) CreateMetric(w http.ResponseWriter, r *http.Request) {
	var in models.Metric
	if err := decodeStrict(r, &in); err != nil {
		apierrors.BadRequest(w, r, "invalid json")
		return
	}

	out, err := h.Tracker.CreateMetric(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) UpdateMetric(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid id")
		return
	}

	var in models.Metric
	if err := decodeStrict(r, &in); err != nil {
		apierrors.BadRequest(w, r, "invalid json")
		return
	}

	out, err := h.Tracker.UpdateMetric(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteMetric(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid id")
		return
	}

	if err := h.Tracker.DeleteMetric(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- records ---

// recordsView - записи вместе со справочниками для формы ввода.
type recordsView struct {
	Records []models.Record `json:"records"`
	Metrics []models.Metric `json:"metrics"`
	Teams   []models.Team   `json:"teams"`
}

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	var out recordsView
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() (err error) {
		out.Records, err = h.Tracker.Records(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Metrics, err = h.Tracker.Metrics(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Teams, err = h.Tracker.Teams(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var in models.Record
	if err := decodeStrict(r, &in); err != nil {
		apierrors.BadRequest(w, r, "invalid json")
		return
	}

	out, err := h.Tracker.CreateRecord(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid id")
		return
	}

	var in models.Record
	if err := decodeStrict(r, &in); err != nil {
		apierrors.BadRequest(w, r, "invalid json")
		return
	}

	out, err := h.Tracker.UpdateRecord(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		apierrors.BadRequest(w, r, "invalid id")
		return
	}

	if err := h.Tracker.DeleteRecord(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
