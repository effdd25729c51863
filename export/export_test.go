package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/gofredmd/deseason"
	"github.com/sartorproj/gofredmd/diagnostics"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/pipeline"
	"github.com/sartorproj/gofredmd/seasonality"
	"github.com/sartorproj/gofredmd/tcode"
	"github.com/sartorproj/gofredmd/timeseries"
)

const vintageCSV = `sasdate,RPI,INDPRO,HOUST
Transform:,5,5,4
1/1/1959,2437.296,21.9665,1657
2/1/1959,2446.902,22.3966,1667
3/1/1959,2462.689,,1620
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWriteTcodeMap(t *testing.T) {
	csvPath := writeFile(t, "current.csv", vintageCSV)
	vintage, err := timeseries.LoadFREDMD(csvPath, nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "tcodes.json")
	meta, err := WriteTcodeMap(csvPath, out, vintage, false)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"HOUST\": 4,\n  \"INDPRO\": 5,\n  \"RPI\": 5\n}\n", string(data))

	sum := sha256.Sum256([]byte(vintageCSV))
	assert.Equal(t, hex.EncodeToString(sum[:]), meta.CSVSHA256)
	assert.Equal(t, 1, meta.TcodeRow)
	assert.Equal(t, 3, meta.NSeries)
	assert.Empty(t, meta.MissingInTcodes)
	assert.Empty(t, meta.ExtraInTcodes)

	raw, err := os.ReadFile(MetaPath(out))
	require.NoError(t, err)
	var sidecar map[string]any
	require.NoError(t, json.Unmarshal(raw, &sidecar))
	assert.Equal(t, out, sidecar["mapping_json_path"])
	assert.Equal(t, csvPath, sidecar["csv_path"])
	assert.Equal(t, []any{}, sidecar["missing_in_tcodes"])

	loaded, err := tcode.LoadMap(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, tcode.LogDiff, loaded["RPI"])

	_, err = WriteTcodeMap(csvPath, out, vintage, false)
	assert.ErrorIs(t, err, ErrExists)
	_, err = WriteTcodeMap(csvPath, out, vintage, true)
	assert.NoError(t, err)
}

func TestWriteTcodeMapWithoutCodes(t *testing.T) {
	csvPath := writeFile(t, "plain.csv", "sasdate,RPI\n1/1/1959,1\n2/1/1959,2\n")
	vintage, err := timeseries.LoadFREDMD(csvPath, nil)
	require.NoError(t, err)

	_, err = WriteTcodeMap(csvPath, filepath.Join(t.TempDir(), "x.json"), vintage, false)
	assert.ErrorIs(t, err, ErrNoCodeRow)
}

func TestLabels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLabels(&buf, []string{"RPI", "INDPRO", "HOUST"}))
	assert.Equal(t, "RPI\nINDPRO\nHOUST\n", buf.String())

	path := filepath.Join(t.TempDir(), "series_labels.txt")
	require.NoError(t, SaveLabels(path, []string{"RPI"}, false))
	assert.ErrorIs(t, SaveLabels(path, []string{"RPI"}, false), ErrExists)
	require.NoError(t, SaveLabels(path, []string{"INDPRO"}, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "INDPRO\n", string(data))
}

func testResult() *pipeline.Result {
	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.Result{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Statuses: []pipeline.Status{
			{
				Series: "INDPRO", Outcome: pipeline.OutcomeOK, State: pipeline.StateIncluded,
				Code:    tcode.LogDiff,
				Verdict: &seasonality.Verdict{Series: "INDPRO", IsSeasonal: true, Period: 12, Statistic: 0.42},
				Method:  deseason.MethodAdditive, Mean: 0.002, Std: 0.01, Group: "Output",
			},
			{
				Series: "BAD", Outcome: pipeline.OutcomeFailed, State: pipeline.StateExcluded,
				FailedStage: pipeline.StageTransform, Kind: errs.KindNonPositiveValue,
				Code: tcode.Log, Reason: "non-positive value",
			},
			{
				Series: "NOCODE", Outcome: pipeline.OutcomeSkipped, State: pipeline.StateSkipped,
				FailedStage: pipeline.StageSelect, Kind: errs.KindMissingCode, Reason: "no code",
			},
		},
		Summary: pipeline.Summary{
			Total:     3,
			ByOutcome: map[pipeline.Outcome]int{pipeline.OutcomeOK: 1, pipeline.OutcomeFailed: 1, pipeline.OutcomeSkipped: 1},
			ByStage:   map[pipeline.Stage]int{pipeline.StageTransform: 1, pipeline.StageSelect: 1},
			ByKind:    map[errs.Kind]int{errs.KindNonPositiveValue: 1, errs.KindMissingCode: 1},
			Seasonal:  1,
		},
	}
}

func readCSV(t *testing.T, data string) []map[string]string {
	t.Helper()
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	var out []map[string]string
	for _, rec := range records[1:] {
		row := map[string]string{}
		for j, h := range records[0] {
			row[h] = rec[j]
		}
		out = append(out, row)
	}
	return out
}

func TestStatusCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, StatusTable(testResult())))

	rows := readCSV(t, buf.String())
	require.Len(t, rows, 3)

	assert.Equal(t, "INDPRO", rows[0]["series"])
	assert.Equal(t, "ok", rows[0]["outcome"])
	assert.Equal(t, "5", rows[0]["tcode"])
	assert.Equal(t, "true", rows[0]["seasonal"])
	assert.Equal(t, "12", rows[0]["period"])
	assert.Equal(t, "0.42", rows[0]["statistic"])
	assert.Equal(t, "additive", rows[0]["method"])
	assert.Equal(t, "0.01", rows[0]["std"])
	assert.Equal(t, "Output", rows[0]["group"])

	assert.Equal(t, "excluded", rows[1]["state"])
	assert.Equal(t, "transform", rows[1]["failed_stage"])
	assert.Equal(t, "non_positive_value", rows[1]["kind"])
	assert.Empty(t, rows[1]["seasonal"])
	assert.Empty(t, rows[1]["mean"])

	assert.Equal(t, "skipped", rows[2]["outcome"])
	assert.Empty(t, rows[2]["tcode"])
}

func TestSummaryTable(t *testing.T) {
	tbl := SummaryTable(testResult())
	got := map[string]any{}
	for _, row := range tbl.Rows {
		got[row[0].(string)] = row[1]
	}
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "2024-03-01T12:00:02Z", got["finished_at"])
	assert.Equal(t, 3, got["total"])
	assert.Equal(t, 1, got["outcome.ok"])
	assert.Equal(t, 1, got["stage.select"])
	assert.Equal(t, 1, got["kind.missing_code"])
	assert.Equal(t, 1, got["seasonal"])
	assert.NotContains(t, got, "matrix.rows")
}

func TestWriteCSVRowWidth(t *testing.T) {
	tbl := Table{Name: "bad", Header: []string{"a", "b"}, Rows: [][]any{{"x"}}}
	assert.Error(t, WriteCSV(&bytes.Buffer{}, tbl))
}

func testPanel(t *testing.T) *timeseries.Panel {
	t.Helper()
	start := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	nan := math.NaN()
	a := timeseries.NewRegular("A", start, timeseries.Monthly, []float64{nan, 1, 2, nan, nan, 5})
	b := timeseries.NewRegular("B", start, timeseries.Monthly, []float64{1, 2, 3, 4, 5, 6})
	p, err := timeseries.NewPanelFromSeries(timeseries.Monthly, b, a)
	require.NoError(t, err)
	return p
}

func TestDiagnosticsTables(t *testing.T) {
	p := testPanel(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, MissingnessTable(diagnostics.Missingness(p))))
	rows := readCSV(t, buf.String())
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0]["series"])
	assert.Equal(t, "3", rows[0]["n_missing"])
	assert.Equal(t, "true", rows[0]["miss_first"])
	assert.Equal(t, "2000-01-01", rows[0]["first_missing"])
	assert.Equal(t, "2000-05-01", rows[0]["last_missing"])
	assert.Equal(t, "2", rows[0]["longest_run"])
	assert.Empty(t, rows[1]["first_missing"])

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, RunsTable(diagnostics.MissingRuns(p))))
	runs := readCSV(t, buf.String())
	require.Len(t, runs, 2)
	assert.Equal(t, "2000-04-01", runs[1]["start"])
	assert.Equal(t, "2", runs[1]["length"])

	st := []diagnostics.SeriesStationarity{{
		Series: "A", N: 3, ADFStat: -1, ADFPValue: math.NaN(), KPSSPValue: 0.1,
		PPPValue: math.NaN(), KPSSReg: "ct", Decision: diagnostics.Inconclusive,
	}}
	buf.Reset()
	require.NoError(t, WriteCSV(&buf, StationarityTable(st)))
	srows := readCSV(t, buf.String())
	assert.Empty(t, srows[0]["adf_pvalue"])
	assert.Equal(t, "0.1", srows[0]["kpss_pvalue"])
	assert.Equal(t, "inconclusive", srows[0]["decision"])

	sr := &diagnostics.ScreenResult{
		Kept:    []string{"B"},
		Dropped: []diagnostics.Screening{{Series: "A", MissingShare: 0.5, Reason: "missing_share>0.40"}},
	}
	buf.Reset()
	require.NoError(t, WriteCSV(&buf, ScreeningTable(sr)))
	scr := readCSV(t, buf.String())
	require.Len(t, scr, 2)
	assert.Equal(t, "true", scr[0]["kept"])
	assert.Empty(t, scr[0]["missing_share"])
	assert.Equal(t, "missing_share>0.40", scr[1]["drop_reason"])
}

func TestWorkbook(t *testing.T) {
	p := testPanel(t)
	res := testResult()
	path := filepath.Join(t.TempDir(), "diagnostics.xlsx")

	require.NoError(t, SaveWorkbook(path, false,
		StatusTable(res),
		SummaryTable(res),
		MissingnessTable(diagnostics.Missingness(p)),
	))
	assert.ErrorIs(t, SaveWorkbook(path, false, StatusTable(res)), ErrExists)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"status", "summary", "missingness"}, f.GetSheetList())

	rows, err := f.GetRows("status")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "series", rows[0][0])
	assert.Equal(t, "INDPRO", rows[1][0])
	assert.Equal(t, "ok", rows[1][1])
	assert.Equal(t, "NOCODE", rows[3][0])

	rows, err = f.GetRows("missingness")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2000-01-01", rows[1][11])

	_, err = Workbook()
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, testResult()))

	var doc struct {
		RunID  string `json:"run_id"`
		Series []struct {
			Series      string `json:"series"`
			Outcome     string `json:"outcome"`
			FailedStage string `json:"failed_stage"`
		} `json:"series"`
		Summary struct {
			Total     int            `json:"total"`
			ByOutcome map[string]int `json:"by_outcome"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.Len(t, doc.Series, 3)
	assert.Equal(t, "transform", doc.Series[1].FailedStage)
	assert.Equal(t, 3, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.ByOutcome["skipped"])

	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, SaveResult(path, testResult(), false))
	assert.ErrorIs(t, SaveResult(path, testResult(), false), ErrExists)
}
