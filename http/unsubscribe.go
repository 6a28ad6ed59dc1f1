package http

import (
	"net/http"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/pkg/hash"
)

const (
	unsubscribedMessage        = "Unsubscribed."
	alreadyUnsubscribedMessage = "You are not currently subscribed."
	invalidUnsubscribeMessage  = "Either identity or hash is invalid."
)

// unsubscribeHandler serves the HMAC-guarded unsubscribe link carried
// in every outgoing message. The store's conditional update is the only
// path that flips the flag.
func (s *Server) unsubscribeHandler(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	identity := query.Get("identity")
	hashValue := query.Get("hash")

	valid, err := hash.ValidMAC(identity, hashValue, s.MailService.HMACSecret())
	if err != nil {
		return err
	}
	if !valid {
		writeJSONResponse(w, http.StatusBadRequest, &verisend.VerdictResponse{
			Message: invalidUnsubscribeMessage,
		})
		return nil
	}

	affected, err := s.Compliance.Unsubscribe(identity)
	if err != nil {
		return err
	}

	message := unsubscribedMessage
	if !affected {
		message = alreadyUnsubscribedMessage
	}
	writeJSONResponse(w, http.StatusOK, &verisend.VerdictResponse{
		Message: message,
	})

	return nil
}
