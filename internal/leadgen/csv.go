package leadgen

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mmatheygr/lead-scoring/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// csvHeader matches the service's default feature columns.
var csvHeader = []string{"Customer ID", "Age", "Income", "Visits", "EmailOpens", "LastContactDays"}

// writeCSV streams the leads as CSV rows.
func writeCSV(w io.Writer, leads []Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, l := range leads {
		row := []string{
			l.CustomerID,
			formatFloat(l.Age),
			formatFloat(l.Income),
			formatFloat(l.Visits),
			formatFloat(l.EmailOpens),
			formatFloat(l.LastContactDays),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// saveLeadsToFile saves the generated leads to a CSV file.
func saveLeadsToFile(ctx context.Context, config *Config, leads []Lead) (string, error) {
	if len(leads) == 0 {
		return "", fmt.Errorf("no leads to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_leads_" + timestamp + ".csv"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if err := writeCSV(file, leads); err != nil {
		return "", err
	}

	logger.Get().Info(ctx, "leads saved to file", logger.String("filename", filename))
	return filename, nil
}
