package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"github.com/itsloashh/yards-app/internal/models"
	"github.com/itsloashh/yards-app/internal/yards"
	"github.com/itsloashh/yards-app/internal/yards/geo"
)

func (app *application) routes() (http.Handler, error) {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	jsonMiddleware := standardMiddleware.Append(makeResponseJSON)

	yardsMux := http.NewServeMux()
	if err := yards.RegisterYardsRoutes(yardsMux, app.yards); err != nil {
		return nil, err
	}

	mux := pat.New()
	mux.Get("/healthz", jsonMiddleware.ThenFunc(app.healthz))
	mux.Get("/api/v1/categories", jsonMiddleware.ThenFunc(app.categories))
	mux.Get("/metrics", standardMiddleware.Then(app.metrics.Handler()))

	// everything else belongs to the yards module
	mux.NotFound = standardMiddleware.Then(yardsMux)

	return mux, nil
}

func (app *application) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *application) categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories":     models.Categories,
		"radius_options": geo.RadiusOptions,
		"units":          []geo.Unit{geo.Miles, geo.Kilometers},
		"avatar_colors":  models.AvatarColors,
	})
}
