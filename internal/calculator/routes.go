package calculator

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts all calculator endpoints onto the given router
// under the /calculator prefix.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/calculator", func(r chi.Router) {
		r.Post("/add", h.Add)
		r.Post("/subtract", h.Subtract)
		r.Post("/multiply", h.Multiply)
		r.Post("/divide", h.Divide)
		r.Post("/chain", h.Chain)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/digits", h.AppendDigit)
				r.Post("/operator", h.ChooseOperator)
				r.Post("/compute", h.Compute)
				r.Post("/clear", h.Clear)
			})
		})
	})
}
