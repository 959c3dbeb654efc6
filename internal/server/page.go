package server

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type pageInfo struct {
	Seed         int64
	ChunkSize    int
	ViewDistance int
}

func (p pageInfo) Title() string {
	return "endless cavern, seed " + strconv.FormatInt(p.Seed, 10)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
