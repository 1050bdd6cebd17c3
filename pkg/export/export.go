// Package export renders schedule results as CSV or JSON for download
// and publishing.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/greystones/roster/pkg/core/model"
)

var csvHeader = []string{"date", "location", "block", "start", "end", "employee_id", "role", "source"}

// WriteCSV writes the result's assignments as CSV rows in their stored order.
func WriteCSV(w io.Writer, result *model.ScheduleResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, a := range result.Assignments {
		row := []string{
			a.Date,
			string(a.Location),
			a.Block,
			a.Start,
			a.End,
			a.EmployeeID,
			string(a.Role),
			string(a.Source),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, result *model.ScheduleResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
