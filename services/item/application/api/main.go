package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/itemfeed/pkg/app"
	"github.com/ghuser/itemfeed/pkg/config"
	"github.com/ghuser/itemfeed/pkg/errhttp"
	"github.com/ghuser/itemfeed/services/item/application/handlers"
)

// ItemRoutes registers item and view endpoints on the provided chi router.
func ItemRoutes(r chi.Router, a *app.Application) {
	errs := errhttp.New(a.Logger, a.Config.Environment == config.EnvProduction)
	inc := handlers.NewIncrementHandler(a.Items, errs)
	v := handlers.NewViewHandler(a.View, a.Feed, a.Dispatcher)

	r.Route("/item", func(r chi.Router) {
		r.Post("/", handlers.NewPostItemHandler(a.Items, errs).Execute)
		r.Get("/", handlers.NewListItemsHandler(a.Items, errs).Execute)
		r.Post("/increment-all", inc.All)
		r.Post("/last/increment", inc.Last)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handlers.NewGetItemHandler(a.Items, errs).Execute)
			r.Put("/name", handlers.NewRenameItemHandler(a.Items, errs).Execute)
			r.Post("/increment", inc.One)
		})
	})
	r.Route("/view", func(r chi.Router) {
		r.Get("/", v.Get)
		r.Post("/reload", v.Reload)
	})
}
