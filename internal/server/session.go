package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/leapstack-labs/crossfilter/internal/filter"
)

const (
	sessionName = "crossfilter"
	// maxCookieBytes is the largest encoded session browsers reliably keep.
	maxCookieBytes = 4096
)

// errSessionTooLarge is returned when a filter set does not fit in the
// session cookie.
var errSessionTooLarge = errors.New("filter set too large to keep in the session")

func randomSecret() ([]byte, error) {
	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return nil, fmt.Errorf("failed to generate session secret")
	}
	return key, nil
}

func filtersKey(datasetID string) string {
	return "filters:" + datasetID
}

// sessionFilters returns the filter set held in the session for a dataset.
func (s *Server) sessionFilters(r *http.Request, datasetID string) ([]filter.Node, error) {
	sess, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		// A cookie signed with another secret yields a fresh session.
		s.logger.Debug("discarding unreadable session", "error", err)
	}
	raw, ok := sess.Values[filtersKey(datasetID)].(string)
	if !ok || raw == "" {
		return []filter.Node{}, nil
	}
	nodes, err := filter.DecodeList([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode session filters: %w", err)
	}
	return nodes, nil
}

// saveSessionFilters replaces the dataset's filter set. A nil set clears it.
func (s *Server) saveSessionFilters(w http.ResponseWriter, r *http.Request, datasetID string, nodes []filter.Node) error {
	sess, _ := s.sessionStore.Get(r, sessionName)
	if nodes == nil {
		delete(sess.Values, filtersKey(datasetID))
	} else {
		raw, err := json.Marshal(filter.List(nodes))
		if err != nil {
			return fmt.Errorf("failed to encode filters: %w", err)
		}
		sess.Values[filtersKey(datasetID)] = string(raw)
	}
	encoded, err := securecookie.EncodeMulti(sessionName, sess.Values, s.sessionStore.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if len(encoded) > maxCookieBytes {
		return fmt.Errorf("%w: %d encoded bytes, limit %d", errSessionTooLarge, len(encoded), maxCookieBytes)
	}
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
