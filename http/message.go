package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/verify"
)

const (
	sentMessage           = "Message sent and recorded."
	sendRejectedMessage   = "The send was rejected by compliance verification."
	defaultMessagesLimit  = 20
	broadcastReportFormat = "Broadcast delivered to %d subscriber(s)."
)

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) error {
	var req *verisend.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "Cannot decode message request.")
	}

	out, err := s.Compliance.Send(r.Context(), req.Identity, req.Subject, req.Body)
	if err != nil {
		return err
	}

	if out.Verdict != verify.Success {
		writeJSONResponse(w, http.StatusUnprocessableEntity, &verisend.VerdictResponse{
			Message: sendRejectedMessage,
			Verdict: out.Verdict.String(),
		})
		return nil
	}

	writeJSONResponse(w, http.StatusOK, &verisend.VerdictResponse{
		Message: sentMessage,
		Verdict: out.Verdict.String(),
		Proof:   out.Proof,
	})

	return nil
}

func (s *Server) broadcastHandler(w http.ResponseWriter, r *http.Request) error {
	var req *verisend.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "Cannot decode broadcast request.")
	}

	hlog.FromRequest(r).Info().Str("subject", req.Subject).Msg("Starting broadcast")

	sent, err := s.Compliance.Broadcast(r.Context(), req.Subject, req.Body)
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, &verisend.VerdictResponse{
		Message: fmt.Sprintf(broadcastReportFormat, sent),
	})

	return nil
}

func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) error {
	identity := mux.Vars(r)["identity"]

	limit := defaultMessagesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return NewError(err, http.StatusBadRequest, "limit must be a positive integer.")
		}
		limit = n
	}

	messages, err := s.SubscriberService.FindMessages(identity, limit)
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, messages)

	return nil
}
