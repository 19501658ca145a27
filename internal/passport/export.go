package passport

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ExportFilename is the attachment name of the CSV export.
const ExportFilename = "passports_export.csv"

const csvHeader = "Full Name,Passport No,Nationality,Expiry Date"

// ExportCSV writes every record of userID, newest first, ignoring any search
// filter. Values are joined with commas as entered: a comma inside a value
// shifts the columns of that line.
func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	records, err := s.list(ctx, userID)
	if err != nil {
		return err
	}

	lines := make([]string, len(records))
	for i, p := range records {
		lines[i] = strings.Join([]string{p.FullName, p.PassportNumber, p.Nationality, p.ExpiryDate}, ",")
	}

	if _, err := io.WriteString(w, csvHeader+"\n"+strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	return nil
}
