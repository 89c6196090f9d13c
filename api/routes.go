package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/coreybb/callcheck/route-handlers"
	"github.com/coreybb/callcheck/webutil"
)

const (
	callsignsPath = "/file"
	fullFilePath  = "/full_file"
	dxInputPath   = "/dx_input"
	contactsPath  = "/contacts"
	relayPath     = "/relay"
	healthPath    = "/healthz"
)

const requestTimeout = 10 * time.Second

func SetupRoutes(
	logbookHandler *rh.LogbookHandler,
	relayHandler *rh.RelayHandler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(CORS())
	r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8)) // Default Content-Type

	configureLogbookRoutes(r, logbookHandler)
	if relayHandler != nil {
		r.Post(relayPath, webutil.MakeHandler(relayHandler.HandleMessage))
	}

	r.Get(healthPath, handleHealthCheck)
	r.NotFound(webutil.MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		return webutil.ErrNotFound("")
	}))

	return r
}

// --- Logbook Routes ---
func configureLogbookRoutes(r chi.Router, handler *rh.LogbookHandler) {
	r.Get(callsignsPath, webutil.MakeHandler(handler.HandleGetCallsigns))
	r.Get(fullFilePath, webutil.MakeHandler(handler.HandleGetFullFile))
	r.Get(dxInputPath, webutil.MakeHandler(handler.HandleGetDXInput))
	r.Get(contactsPath, webutil.MakeHandler(handler.HandleGetContacts))
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	webutil.RespondWithText(w, http.StatusOK, "OK")
}
