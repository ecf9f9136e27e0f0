package main

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/23skdu/elimstack/stack"
)

// Row is one timed round, as written to the parquet report.
type Row struct {
	Variant    string  `parquet:"variant"`
	Threads    int32   `parquet:"threads"`
	Repetition int32   `parquet:"repetition"`
	Ops        int64   `parquet:"ops"`
	ElapsedMS  int64   `parquet:"elapsed_ms"`
	OpsPerSec  float64 `parquet:"ops_per_sec"`
	Eliminated uint64  `parquet:"eliminated"`
	Central    uint64  `parquet:"central"`
	CASRetries uint64  `parquet:"cas_retries"`
	EmptyPops  uint64  `parquet:"empty_pops"`
	TimedOut   uint64  `parquet:"timed_out"`
	Contended  uint64  `parquet:"contended"`
}

func newRow(v stack.Variant, threads, rep, ops int, elapsed time.Duration, st stack.Stats) Row {
	row := Row{
		Variant:    v.String(),
		Threads:    int32(threads),
		Repetition: int32(rep),
		Ops:        int64(ops),
		ElapsedMS:  elapsed.Milliseconds(),
		Eliminated: st.Eliminated(),
		Central:    st.CentralPushes + st.CentralPops,
		CASRetries: st.CASRetries,
		EmptyPops:  st.EmptyPops,
		TimedOut:   st.TimedOut,
		Contended:  st.Contended,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		row.OpsPerSec = float64(ops) / secs
	}
	return row
}

// WriteReport writes rows to a zstd-compressed parquet file at path.
func WriteReport(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[Row](f, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, err
	}

	pr := parquet.NewGenericReader[Row](pf)
	defer pr.Close()

	rows := make([]Row, pr.NumRows())
	n, err := pr.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return rows[:n], nil
}
