// Package adif pulls callsigns out of an ADIF logbook as written by WSJT-X.
package adif

import (
	"regexp"
	"strings"

	"github.com/coreybb/callcheck/models"
)

var (
	// The call field is always followed by the gridsquare field in WSJT-X records.
	callRegex = regexp.MustCompile(`<call:\d+>(.*?) <gridsquare`)
	gridRegex = regexp.MustCompile(`<gridsquare:\d+>(\S*)`)
)

// ExtractCallsigns returns the callsign of every record line in text, in file order.
// Duplicates are kept. Lines that do not match contribute nothing.
func ExtractCallsigns(text string) []string {
	callsigns := []string{}
	for _, line := range strings.Split(text, "\n") {
		if call, ok := matchCall(line); ok {
			callsigns = append(callsigns, call)
		}
	}
	return callsigns
}

// ExtractContacts is ExtractCallsigns with the gridsquare value kept alongside each call.
func ExtractContacts(text string) []models.Contact {
	contacts := []models.Contact{}
	for _, line := range strings.Split(text, "\n") {
		call, ok := matchCall(line)
		if !ok {
			continue
		}
		contact := models.Contact{Callsign: call}
		if m := gridRegex.FindStringSubmatch(line); m != nil {
			contact.Grid = m[1]
		}
		contacts = append(contacts, contact)
	}
	return contacts
}

func matchCall(line string) (string, bool) {
	m := callRegex.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
