package export

import (
	"io"

	"github.com/sartorproj/gofredmd/pipeline"
)

// WriteResult writes the JSON form of a run: run id, timings, grouping,
// per-series statuses and the summary.
func WriteResult(w io.Writer, r *pipeline.Result) error {
	return WriteJSON(w, r)
}

// SaveResult writes the JSON form of a run to path.
func SaveResult(path string, r *pipeline.Result, overwrite bool) error {
	return writeJSONFile(path, r, overwrite)
}
