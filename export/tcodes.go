// Package export writes pipeline artefacts: transformation code maps with a
// provenance sidecar, series labels, per-series status tables, JSON results
// and a diagnostics workbook.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sartorproj/gofredmd/tcode"
	"github.com/sartorproj/gofredmd/timeseries"
)

// ErrExists is returned when an output file exists and overwrite is off.
var ErrExists = errors.New("output file exists")

// ErrNoCodeRow is returned when a vintage carries no transformation codes.
var ErrNoCodeRow = errors.New("vintage has no transformation code row")

// TcodeMeta is the provenance sidecar written next to a code map.
type TcodeMeta struct {
	TcodeRow        int      `json:"tcode_row"`
	CSVPath         string   `json:"csv_path"`
	CSVSHA256       string   `json:"csv_sha256"`
	NSeries         int      `json:"n_series"`
	MissingInTcodes []string `json:"missing_in_tcodes"`
	ExtraInTcodes   []string `json:"extra_in_tcodes"`
	MappingJSONPath string   `json:"mapping_json_path"`
}

// MetaPath returns the sidecar path for a code map file.
func MetaPath(mapPath string) string {
	return mapPath + ".meta.json"
}

// WriteTcodeMap writes the embedded codes of vintage to outPath as a JSON
// object with sorted keys, and the provenance sidecar to MetaPath(outPath).
// csvPath names the file the vintage was read from and is hashed.
func WriteTcodeMap(csvPath, outPath string, vintage *timeseries.FREDMD, overwrite bool) (*TcodeMeta, error) {
	if vintage == nil || vintage.CodeRow < 0 || len(vintage.Codes) == 0 {
		return nil, ErrNoCodeRow
	}
	sum, err := fileSHA256(csvPath)
	if err != nil {
		return nil, err
	}

	codes := tcode.ParseMap(vintage.Codes)
	cov := codes.Check(vintage.Panel.Names())
	meta := &TcodeMeta{
		TcodeRow:        vintage.CodeRow,
		CSVPath:         csvPath,
		CSVSHA256:       sum,
		NSeries:         len(codes),
		MissingInTcodes: cov.Missing,
		ExtraInTcodes:   cov.Extra,
		MappingJSONPath: outPath,
	}

	if err := writeJSONFile(outPath, codes.Ints(), overwrite); err != nil {
		return nil, err
	}
	if err := writeJSONFile(MetaPath(outPath), meta, overwrite); err != nil {
		return nil, err
	}
	return meta, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// create opens path for writing, refusing to replace an existing file unless
// overwrite is set.
func create(path string, overwrite bool) (*os.File, error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrExists, path)
	}
	return f, err
}

func writeJSONFile(path string, v any, overwrite bool) error {
	f, err := create(path, overwrite)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes v indented by two spaces with a trailing newline. Map keys
// are sorted.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
