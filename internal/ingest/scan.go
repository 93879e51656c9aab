package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"historyScope/internal/model"
)

const maxRecordSize = 10 * 1024 * 1024

// ScanRecords reads TransactionRecord lines from r and hands each to fn. Blank
// lines are skipped. A line that is not valid JSON reaches fn with its error
// so the caller can record it and go on; an error returned by fn stops the scan.
func ScanRecords(ctx context.Context, r io.Reader, fn func(record model.TransactionRecord, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var record model.TransactionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			if stop := fn(model.TransactionRecord{}, fmt.Errorf("line %d: %w", line, err)); stop != nil {
				return stop
			}
			continue
		}
		if err := fn(record, nil); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}
