package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sartorproj/gofredmd/diagnostics"
	"github.com/sartorproj/gofredmd/errs"
	"github.com/sartorproj/gofredmd/pipeline"
)

const dateLayout = "2006-01-02"

// Table is a named header plus rows of cells. Cells are strings, ints,
// float64s, bools, time.Times or nil.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// StatusTable has one row per series of a run, in input order.
func StatusTable(r *pipeline.Result) Table {
	t := Table{
		Name: "status",
		Header: []string{
			"series", "outcome", "state", "failed_stage", "kind", "tcode",
			"seasonal", "period", "statistic", "low_confidence", "method",
			"mean", "std", "group", "reason",
		},
	}
	for _, st := range r.Statuses {
		var code, seasonal, low, period any
		var statistic, mean, std any = math.NaN(), math.NaN(), math.NaN()
		if st.Code != 0 {
			code = int(st.Code)
		}
		if st.Verdict != nil {
			seasonal = st.Verdict.IsSeasonal
			low = st.Verdict.LowConfidence
			period = st.Verdict.Period
			statistic = st.Verdict.Statistic
		}
		if st.Outcome == pipeline.OutcomeOK {
			mean, std = st.Mean, st.Std
		}
		t.Rows = append(t.Rows, []any{
			st.Series, string(st.Outcome), string(st.State), string(st.FailedStage),
			string(st.Kind), code, seasonal, period, statistic, low,
			string(st.Method), mean, std, st.Group, st.Reason,
		})
	}
	return t
}

// SummaryTable flattens the run summary into metric/value rows.
func SummaryTable(r *pipeline.Result) Table {
	t := Table{Name: "summary", Header: []string{"metric", "value"}}
	add := func(k string, v any) { t.Rows = append(t.Rows, []any{k, v}) }

	add("run_id", r.RunID)
	add("started_at", r.StartedAt.UTC().Format(time.RFC3339))
	add("finished_at", r.FinishedAt.UTC().Format(time.RFC3339))
	add("total", r.Summary.Total)
	for _, o := range []pipeline.Outcome{pipeline.OutcomeOK, pipeline.OutcomeSkipped, pipeline.OutcomeFailed} {
		add("outcome."+string(o), r.Summary.ByOutcome[o])
	}
	for _, k := range sortedKeys(r.Summary.ByStage) {
		add("stage."+k, r.Summary.ByStage[pipeline.Stage(k)])
	}
	for _, k := range sortedKeys(r.Summary.ByKind) {
		add("kind."+k, r.Summary.ByKind[errs.Kind(k)])
	}
	add("seasonal", r.Summary.Seasonal)
	if r.Matrix != nil {
		rows, cols := r.Matrix.Dims()
		add("matrix.rows", rows)
		add("matrix.cols", cols)
		add("matrix.missing", r.Matrix.MissingCount())
	}
	if r.Grouping != nil {
		for _, g := range r.Grouping.Groups {
			add("group."+g.Name, len(g.Series))
		}
	}
	return t
}

// MissingnessTable has one row per series of a missingness report.
func MissingnessTable(rep *diagnostics.MissingnessReport) Table {
	t := Table{
		Name: "missingness",
		Header: []string{
			"series", "n_rows", "n_missing", "pct_missing", "miss_first", "miss_second",
			"miss_both_first_two", "miss_any_first_two", "miss_intermediate",
			"n_missing_intermediate", "miss_last", "first_missing", "last_missing",
			"n_runs", "longest_run",
		},
	}
	for _, m := range rep.Series {
		t.Rows = append(t.Rows, []any{
			m.Series, m.Rows, m.Missing, m.PctMissing, m.MissFirst, m.MissSecond,
			m.MissBothFirstTwo, m.MissAnyFirstTwo, m.MissIntermediate,
			m.MissingIntermediate, m.MissLast, timePtr(m.FirstMissing), timePtr(m.LastMissing),
			m.Runs, m.LongestRun,
		})
	}
	return t
}

// RunsTable lists contiguous missing runs.
func RunsTable(runs []diagnostics.MissingRun) Table {
	t := Table{Name: "missing_runs", Header: []string{"series", "start", "end", "length"}}
	for _, r := range runs {
		t.Rows = append(t.Rows, []any{r.Series, r.Start, r.End, r.Length})
	}
	return t
}

// StationarityTable has one row per tested series.
func StationarityTable(results []diagnostics.SeriesStationarity) Table {
	t := Table{
		Name: "stationarity",
		Header: []string{
			"series", "n_non_na", "adf_stat", "adf_pvalue", "kpss_stat", "kpss_pvalue",
			"pp_pvalue", "kpss_reg", "decision", "suggested_diffs", "seasonal_diffs",
			"ljungbox_pvalue",
		},
	}
	for _, r := range results {
		t.Rows = append(t.Rows, []any{
			r.Series, r.N, r.ADFStat, r.ADFPValue, r.KPSSStat, r.KPSSPValue,
			r.PPPValue, r.KPSSReg, string(r.Decision), r.SuggestedDiffs, r.SeasonalDiffs,
			r.LjungBoxPValue,
		})
	}
	return t
}

// ScreeningTable lists kept series followed by dropped ones with their reason.
func ScreeningTable(sr *diagnostics.ScreenResult) Table {
	t := Table{
		Name:   "screening",
		Header: []string{"series", "kept", "missing_share", "leading_na_since_anchor", "interior_gap_months", "nobs_train", "drop_reason"},
	}
	for _, name := range sr.Kept {
		t.Rows = append(t.Rows, []any{name, true, nil, nil, nil, nil, ""})
	}
	for _, d := range sr.Dropped {
		t.Rows = append(t.Rows, []any{d.Series, false, d.MissingShare, d.LeadingMissing, d.InteriorGap, d.TrainObs, d.Reason})
	}
	return t
}

// WriteCSV writes t with its header. Missing numbers and nil cells are empty.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	record := make([]string, len(t.Header))
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("table %s: row %d has %d cells, header has %d", t.Name, i, len(row), len(t.Header))
		}
		for j, v := range row {
			record[j] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes t to path.
func SaveCSV(path string, t Table, overwrite bool) error {
	f, err := create(path, overwrite)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(dateLayout)
	}
	return fmt.Sprint(v)
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
