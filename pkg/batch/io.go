package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/soundprediction/percorso/pkg/checkpoint"
)

// ReadQuestions reads the named question column of a CSV file, in row
// order. Column matching is case-insensitive; an empty column name selects
// DefaultQuestionColumn.
func ReadQuestions(path, column string) ([]string, error) {
	if column == "" {
		column = DefaultQuestionColumn
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening question file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("question file %s is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading question file header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			col = i
			break
		}
	}
	if col == -1 {
		return nil, fmt.Errorf("question file has no %q column (headers: %s)", column, strings.Join(header, ", "))
	}

	var questions []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading question row: %w", err)
		}
		if col >= len(record) {
			questions = append(questions, "")
			continue
		}
		questions = append(questions, strings.TrimSpace(record[col]))
	}

	return questions, nil
}

// WriteResults writes answered rows to path, choosing the format by
// extension: .parquet writes a Parquet file, anything else CSV.
func WriteResults(path string, results []*checkpoint.QuestionResult) error {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return writeParquet(path, results)
	}
	return writeCSV(path, results)
}

func writeCSV(path string, results []*checkpoint.QuestionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{"index", "question", "answer", "provenance", "rounds", "sufficient", "error"}
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("writing output header: %w", err)
	}

	for _, result := range results {
		record := []string{
			strconv.Itoa(result.Index),
			result.Question,
			result.Answer,
			strings.Join(result.Provenance, "; "),
			strconv.Itoa(result.Rounds),
			strconv.FormatBool(result.Sufficient),
			result.Error,
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("writing output row %d: %w", result.Index, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing output file: %w", err)
	}
	return f.Close()
}

// parquetAnswer is the Parquet schema for one answered question.
type parquetAnswer struct {
	Index      int64  `parquet:"index"`
	Question   string `parquet:"question"`
	Answer     string `parquet:"answer"`
	Provenance string `parquet:"provenance"` // "; "-joined triple strings
	Rounds     int32  `parquet:"rounds"`
	Sufficient bool   `parquet:"sufficient"`
	Error      string `parquet:"error"`
}

func writeParquet(path string, results []*checkpoint.QuestionResult) error {
	rows := make([]parquetAnswer, len(results))
	for i, result := range results {
		rows[i] = parquetAnswer{
			Index:      int64(result.Index),
			Question:   result.Question,
			Answer:     result.Answer,
			Provenance: strings.Join(result.Provenance, "; "),
			Rounds:     int32(result.Rounds),
			Sufficient: result.Sufficient,
			Error:      result.Error,
		}
	}

	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("writing parquet output: %w", err)
	}
	return nil
}
