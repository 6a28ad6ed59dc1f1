package http

import (
	"net/http"
)

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.Compliance.Stats()
	if err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, stats)

	return nil
}
