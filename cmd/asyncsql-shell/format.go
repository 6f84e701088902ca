package main

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

// writeRow prints one row as a JSON object with sorted keys.
func writeRow(out io.Writer, keys []string, row asyncsql.Row) error {
	mapping := asyncsql.RowMapping(keys, row)
	for key, value := range mapping {
		if b, ok := value.([]byte); ok {
			mapping[key] = string(b)
		}
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	_, err = fmt.Fprintf(out, "%s\n", data)

	return err
}

// writeRowCount prints the affected row count, or just OK when the driver reported none.
func writeRowCount(out io.Writer, rowCount int64) error {
	if rowCount < 0 {
		_, err := fmt.Fprintln(out, "OK")
		return err
	}

	_, err := fmt.Fprintf(out, "OK, %d rows affected\n", rowCount)

	return err
}
