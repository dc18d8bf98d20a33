package handlers

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/metrics-tracker/internal/models"
)

// Dashboard загружает пользователя, справочники, записи и сводку параллельно.
// Ошибка любой загрузки отменяет остальные.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	var out models.Dashboard
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() (err error) {
		out.User, err = h.Tracker.Me(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Teams, err = h.Tracker.Teams(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Metrics, err = h.Tracker.Metrics(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Records, err = h.Tracker.Records(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Summary, err = h.Tracker.Summary(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Tracker.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}
