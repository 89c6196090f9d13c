package routehandlers

import (
	"log"
	"net/http"

	"github.com/coreybb/callcheck/adif"
	"github.com/coreybb/callcheck/storage"
	"github.com/coreybb/callcheck/webutil"
)

// Holds dependencies for the logbook bridge route handlers.
type LogbookHandler struct {
	Files storage.FileSource
}

// Creates a new LogbookHandler.
func NewLogbookHandler(files storage.FileSource) *LogbookHandler {
	return &LogbookHandler{Files: files}
}

// HandleGetCallsigns serves the callsigns extracted from the logbook as a JSON array.
func (h *LogbookHandler) HandleGetCallsigns(w http.ResponseWriter, r *http.Request) error {
	text, err := h.Files.ReadLogbook(r.Context())
	if err != nil {
		return webutil.ErrFileReadWrap(err)
	}

	callsigns := adif.ExtractCallsigns(text)
	log.Printf("INFO (LogbookHandler): Sending %d callsigns", len(callsigns))
	webutil.RespondWithJSON(w, http.StatusOK, callsigns)
	return nil
}

// HandleGetContacts serves call/grid pairs from the logbook.
func (h *LogbookHandler) HandleGetContacts(w http.ResponseWriter, r *http.Request) error {
	text, err := h.Files.ReadLogbook(r.Context())
	if err != nil {
		return webutil.ErrFileReadWrap(err)
	}

	webutil.RespondWithJSON(w, http.StatusOK, adif.ExtractContacts(text))
	return nil
}

func (h *LogbookHandler) HandleGetFullFile(w http.ResponseWriter, r *http.Request) error {
	text, err := h.Files.ReadLogbook(r.Context())
	if err != nil {
		return webutil.ErrFileReadWrap(err)
	}

	log.Println("INFO (LogbookHandler): Sending full logbook")
	webutil.RespondWithText(w, http.StatusOK, text)
	return nil
}

// HandleGetDXInput serves the callsign currently entered in the logging application.
func (h *LogbookHandler) HandleGetDXInput(w http.ResponseWriter, r *http.Request) error {
	callsign, err := h.Files.ReadCurrentCallsign(r.Context())
	if err != nil {
		return webutil.ErrFileReadWrap(err)
	}

	webutil.RespondWithText(w, http.StatusOK, callsign)
	return nil
}
