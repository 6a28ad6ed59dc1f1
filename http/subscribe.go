package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/verify"
)

const (
	subscribedMessage      = "Your subscription is confirmed. A consent proof has been recorded."
	consentRejectedMessage = "Your consent could not be verified. Please restart the subscription flow."
)

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) error {
	var req *verisend.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "Cannot decode subscription request.")
	}

	logger := hlog.FromRequest(r)
	logger.Info().Str("identity", req.Identity).Msg("Verifying consent chain")

	out, err := s.Compliance.Subscribe(req)
	if err != nil {
		return err
	}

	if out.Verdict != verify.Success {
		writeJSONResponse(w, http.StatusUnprocessableEntity, &verisend.VerdictResponse{
			Message: consentRejectedMessage,
			Verdict: out.Verdict.String(),
		})
		return nil
	}

	writeJSONResponse(w, http.StatusOK, &verisend.VerdictResponse{
		Message: subscribedMessage,
		Verdict: out.Verdict.String(),
		Proof:   out.Proof,
	})

	return nil
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	//nolint:errcheck
	json.NewEncoder(w).Encode(response)
}
