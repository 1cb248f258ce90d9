package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
)

// Dataset artifact filenames.
const (
	LegacyDatasetFile = "solves_training_v1.csv"
	DatasetFileV2     = "solves_training_v2.csv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// WriteCSV writes two-head rows with a fixed header: identity columns,
// features in canonical order, then the three targets.
func WriteCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"user_id", "solve_id"}, scoring.FeatureOrder...)
	header = append(header, "y_time_ms", "y_dnf", "y_plus2")

	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		vec, err := row.Features.Vector(scoring.FeatureOrder)
		if err != nil {
			return fmt.Errorf("solve %d: %w", row.SolveID, err)
		}

		record := make([]string, 0, len(header))
		record = append(record,
			strconv.FormatUint(uint64(row.UserID), 10),
			strconv.FormatUint(row.SolveID, 10),
		)

		for _, v := range vec {
			record = append(record, formatFloat(v))
		}

		record = append(record,
			formatFloat(row.YTimeMs),
			formatFloat(row.YDNF),
			formatFloat(row.YPlus2),
		)

		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row for solve %d: %w", row.SolveID, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing dataset file: %w", err)
	}

	return f.Close()
}

// WriteLegacyCSV writes single-target rows: identity columns, features in
// canonical order, then the score label.
func WriteLegacyCSV(path string, rows []LegacyRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"user_id", "solve_id"}, scoring.FeatureOrder...)
	header = append(header, "y_score")

	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		vec, err := row.Features.Vector(scoring.FeatureOrder)
		if err != nil {
			return fmt.Errorf("solve %d: %w", row.SolveID, err)
		}

		record := make([]string, 0, len(header))
		record = append(record,
			strconv.FormatUint(uint64(row.UserID), 10),
			strconv.FormatUint(row.SolveID, 10),
		)

		for _, v := range vec {
			record = append(record, formatFloat(v))
		}

		record = append(record, formatFloat(row.YScore))

		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing row for solve %d: %w", row.SolveID, err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing dataset file: %w", err)
	}

	return f.Close()
}

// readCSV loads a dataset file and returns the header plus records, with
// basic shape validation against the expected column count.
func readCSV(path string, wantCols int) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dataset file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading dataset file: %w", err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("dataset file %s is empty", path)
	}

	header := records[0]
	if len(header) != wantCols {
		return nil, nil, fmt.Errorf("dataset file %s has %d columns, expected %d", path, len(header), wantCols)
	}

	return header, records[1:], nil
}

// ReadCSV loads two-head rows written by WriteCSV. Features are keyed by the
// file's own header so column order changes do not silently reassign values.
func ReadCSV(path string) ([]Row, error) {
	wantCols := 2 + len(scoring.FeatureOrder) + 3

	header, records, err := readCSV(path, wantCols)
	if err != nil {
		return nil, err
	}

	featNames := header[2 : 2+len(scoring.FeatureOrder)]

	rows := make([]Row, 0, len(records))

	for i, rec := range records {
		userID, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing user_id: %w", i, err)
		}

		solveID, err := strconv.ParseUint(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing solve_id: %w", i, err)
		}

		feats := make(scoring.Features, len(featNames))

		for j, name := range featNames {
			v, err := parseFloat(rec[2+j])
			if err != nil {
				return nil, fmt.Errorf("record %d: parsing %s: %w", i, name, err)
			}

			feats[name] = v
		}

		base := 2 + len(featNames)

		yTime, err := parseFloat(rec[base])
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing y_time_ms: %w", i, err)
		}

		yDNF, err := parseFloat(rec[base+1])
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing y_dnf: %w", i, err)
		}

		yPlus2, err := parseFloat(rec[base+2])
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing y_plus2: %w", i, err)
		}

		rows = append(rows, Row{
			UserID:   uint(userID),
			SolveID:  solveID,
			Features: feats,
			YTimeMs:  yTime,
			YDNF:     yDNF,
			YPlus2:   yPlus2,
		})
	}

	return rows, nil
}

// ReadLegacyCSV loads single-target rows written by WriteLegacyCSV.
func ReadLegacyCSV(path string) ([]LegacyRow, error) {
	wantCols := 2 + len(scoring.FeatureOrder) + 1

	header, records, err := readCSV(path, wantCols)
	if err != nil {
		return nil, err
	}

	featNames := header[2 : 2+len(scoring.FeatureOrder)]

	rows := make([]LegacyRow, 0, len(records))

	for i, rec := range records {
		userID, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing user_id: %w", i, err)
		}

		solveID, err := strconv.ParseUint(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing solve_id: %w", i, err)
		}

		feats := make(scoring.Features, len(featNames))

		for j, name := range featNames {
			v, err := parseFloat(rec[2+j])
			if err != nil {
				return nil, fmt.Errorf("record %d: parsing %s: %w", i, name, err)
			}

			feats[name] = v
		}

		yScore, err := parseFloat(rec[2+len(featNames)])
		if err != nil {
			return nil, fmt.Errorf("record %d: parsing y_score: %w", i, err)
		}

		rows = append(rows, LegacyRow{
			UserID:   uint(userID),
			SolveID:  solveID,
			Features: feats,
			YScore:   yScore,
		})
	}

	return rows, nil
}
