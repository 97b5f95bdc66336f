package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/secdrive/internal/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// SecretKey enables bearer-token identity binding when non-empty.
	SecretKey []byte
	Pinger    Pinger
	Logger    logging.Logger
}

// NewRouter wires the API routes, the health endpoints and /metrics.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(opts.Logger))
	r.Use(Metrics)
	r.Use(CORS)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, statusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, statusValidation, "method not allowed")
	})

	r.Get("/health/live", Live)
	r.Get("/health/ready", Ready(opts.Pinger, opts.Logger))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if len(opts.SecretKey) > 0 {
			r.Use(Identity(opts.SecretKey))
		}

		r.Post("/generateDataKey", h.GenerateDataKey)
		r.Post("/decryptDataKey", h.DecryptDataKey)
		r.Post("/generatePresignedUrl", h.GeneratePresignedURL)
		r.Post("/confirmUpload", h.ConfirmUpload)
		r.Post("/deleteFile", h.DeleteFile)
		r.Get("/files", h.ListFiles)
		r.Post("/users", h.StoreUser)
		r.Get("/users/profile", h.GetUserProfile)
		r.Get("/getUserData", h.GetUserData)
	})

	return r
}
