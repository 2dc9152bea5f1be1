package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/spacesim/internal/sim"
)

type ExportData struct {
	Run    RunMetadata `json:"run"`
	Frames []sim.Frame `json:"frames"`
}

// ExportJSON writes a run and its frames in the websocket frame encoding.
func ExportJSON(w io.Writer, meta RunMetadata, frames []sim.Frame) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: meta, Frames: frames})
}
