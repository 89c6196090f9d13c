package routehandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreybb/callcheck/models"
	"github.com/coreybb/callcheck/relay"
	"github.com/coreybb/callcheck/webutil"
)

// Holds dependencies for the relay route handler.
type RelayHandler struct {
	Relay *relay.Relay
}

func NewRelayHandler(r *relay.Relay) *RelayHandler {
	return &RelayHandler{Relay: r}
}

// HandleMessage answers a relay message posted by an extension context.
// getLastCallsign responds with a JSON string or null; setLastCallsign with 204.
func (h *RelayHandler) HandleMessage(w http.ResponseWriter, r *http.Request) error {
	var msg models.RelayMessage
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&msg); err != nil {
		return webutil.ErrBadRequest("Invalid request payload: " + err.Error())
	}
	defer r.Body.Close()

	if msg.Type == models.RelaySetLastCallsign && msg.Callsign == "" {
		return webutil.ErrBadRequest("Missing required field (callsign)")
	}

	value, err := h.Relay.Handle(r.Context(), msg)
	if err != nil {
		if errors.Is(err, relay.ErrUnknownMessage) {
			return webutil.ErrBadRequestWrap(fmt.Sprintf("Unknown message type %q", msg.Type), err)
		}
		return webutil.ErrInternalServerWrap("relay message failed", err)
	}

	if msg.Type == models.RelaySetLastCallsign {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	webutil.RespondWithJSON(w, http.StatusOK, value)
	return nil
}
