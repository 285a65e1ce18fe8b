package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
)

// blob loads and stores the whole table as one object. load returns nil
// data and no error when the object does not exist yet.
type blob interface {
	load(ctx context.Context) ([]byte, error)
	store(ctx context.Context, data []byte) error
}

// csvSheet implements Sheet over a CSV document kept in a blob. Every
// mutation is a read-modify-write of the whole document.
type csvSheet struct {
	blob blob
}

func (s *csvSheet) ReadAll(ctx context.Context) ([]Row, error) {
	data, err := s.blob.load(ctx)
	if err != nil {
		return nil, err
	}
	return decodeCSV(bytes.NewReader(data))
}

func (s *csvSheet) AppendRow(ctx context.Context, row Row) error {
	return s.mutate(ctx, func(rows []Row) ([]Row, error) {
		return append(rows, normalize(row)), nil
	})
}

func (s *csvSheet) UpdateCell(ctx context.Context, row, col int, value string) error {
	return s.mutate(ctx, func(rows []Row) ([]Row, error) {
		return rows, updateRows(rows, row, col, value)
	})
}

func (s *csvSheet) DeleteRow(ctx context.Context, row int) error {
	return s.mutate(ctx, func(rows []Row) ([]Row, error) {
		return deleteRow(rows, row)
	})
}

func (s *csvSheet) mutate(ctx context.Context, fn func([]Row) ([]Row, error)) error {
	rows, err := s.ReadAll(ctx)
	if err != nil {
		return err
	}
	rows, err = fn(rows)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := encodeCSV(&buf, rows); err != nil {
		return err
	}
	return s.blob.store(ctx, buf.Bytes())
}

// decodeCSV reads data rows, skipping the header row when present.
func decodeCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == Header[ColID] {
			continue
		}
		rows = append(rows, normalize(rec))
	}
	return rows, nil
}

func encodeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(normalize(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
