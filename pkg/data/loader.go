package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/manjudata/predict-mlops/pkg/errs"
)

// RawTable holds the untyped records of a CSV file.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// ReadCSV loads the whole CSV file at path.
func ReadCSV(path string) (*RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.E(errs.KindDataLoad, "open raw data", err)
	}
	defer file.Close()

	raw, err := ReadRaw(file)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"path": path, "rows": len(raw.Rows), "columns": len(raw.Header)}).
		Info("raw data loaded")
	return raw, nil
}

// ReadRaw parses CSV records from r. The first record is the header; every
// following record must have the same number of fields.
func ReadRaw(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.Errorf(errs.KindDataLoad, "read raw data", "empty input")
	}
	if err != nil {
		return nil, errs.E(errs.KindDataLoad, "read raw header", err)
	}

	raw := &RawTable{Header: append([]string(nil), header...)}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.E(errs.KindDataLoad, fmt.Sprintf("read raw record %d", line), err)
		}
		raw.Rows = append(raw.Rows, rec)
	}
	return raw, nil
}

// Column returns the values of the named column, or false if absent.
func (r *RawTable) Column(name string) ([]string, bool) {
	idx := -1
	for i, h := range r.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[idx]
	}
	return out, true
}
