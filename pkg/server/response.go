package server

import (
	"encoding/json"
	"net/http"

	"github.com/storacha/shard-migrator/pkg/migrateerr"
)

type cidLink struct {
	Link string `json:"/"`
}

type hashResponse struct {
	OK  bool     `json:"ok"`
	Cid *cidLink `json:"cid,omitempty"`
}

type copyResponse struct {
	OK bool `json:"ok"`
}

type reindexResponse struct {
	OK      bool `json:"ok"`
	Updated int  `json:"updated"`
}

type headResponse struct {
	OK    bool `json:"ok"`
	Shard bool `json:"shard"`
	Index bool `json:"index"`
	Link  bool `json:"link"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warnf("encoding response body: %s", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, migrateerr.HTTPStatusOf(err), errorResponse{OK: false, Error: err.Error()})
}
