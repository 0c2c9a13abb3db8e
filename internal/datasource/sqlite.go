package datasource

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pairplot/pkg/debug"
	"github.com/vanderheijden86/pairplot/pkg/model"
)

// RecordsTable is the table holding the dataset.
const RecordsTable = "records"

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
	idx                      INTEGER PRIMARY KEY,
	instruction              TEXT NOT NULL DEFAULT '',
	input                    TEXT NOT NULL DEFAULT '',
	output                   TEXT NOT NULL DEFAULT '',
	instruction_x            REAL,
	instruction_y            REAL,
	output_x                 REAL,
	output_y                 REAL,
	instruction_word_count   INTEGER,
	instruction_avg_word_len REAL,
	output_word_count        INTEGER,
	output_avg_word_len      REAL
)`

// SQLiteReader provides read access to a records database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	// Open in read-only mode with various pragmas for read performance
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",  // 64MB cache
		"PRAGMA mmap_size = 268435456", // 256MB mmap
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s: %v", pragma, err)
		}
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadRecords reads all records ordered by their stored index. Indices are
// reassigned densely in that order.
func (r *SQLiteReader) LoadRecords() ([]model.Record, error) {
	return r.LoadRecordsFiltered(nil)
}

// LoadRecordsFiltered reads records matching the filter function
func (r *SQLiteReader) LoadRecordsFiltered(filter func(*model.Record) bool) ([]model.Record, error) {
	query := `
		SELECT
			instruction, input, output,
			instruction_x, instruction_y, output_x, output_y,
			instruction_word_count, instruction_avg_word_len,
			output_word_count, output_avg_word_len
		FROM records
		ORDER BY idx
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var rec model.Record
		var ix, iy, ox, oy, iAvg, oAvg sql.NullFloat64
		var iCount, oCount sql.NullInt64
		var instruction, input, output sql.NullString

		if err := rows.Scan(
			&instruction, &input, &output,
			&ix, &iy, &ox, &oy,
			&iCount, &iAvg, &oCount, &oAvg,
		); err != nil {
			debug.Log("datasource: skipping unreadable row: %v", err)
			continue
		}

		rec.Instruction = instruction.String
		rec.Input = input.String
		rec.Output = output.String
		rec.InstructionX = nullToNaN(ix)
		rec.InstructionY = nullToNaN(iy)
		rec.OutputX = nullToNaN(ox)
		rec.OutputY = nullToNaN(oy)

		if iCount.Valid {
			rec.InstructionWordCount = int(iCount.Int64)
			rec.InstructionAvgWordLen = iAvg.Float64
		} else {
			rec.InstructionWordCount, rec.InstructionAvgWordLen = model.WordMetrics(strings.TrimSpace(rec.Instruction + " " + rec.Input))
		}
		if oCount.Valid {
			rec.OutputWordCount = int(oCount.Int64)
			rec.OutputAvgWordLen = oAvg.Float64
		} else {
			rec.OutputWordCount, rec.OutputAvgWordLen = model.WordMetrics(rec.Output)
		}

		if filter != nil && !filter(&rec) {
			continue
		}
		rec.Index = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// CountRecords returns the number of stored records
func (r *SQLiteReader) CountRecords() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SaveSQLite writes records to a fresh database at path. An existing file is
// replaced only after the new one has been written completely.
func SaveSQLite(path string, records []model.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".pairplot-*.db")
	if err != nil {
		return fmt.Errorf("create temp database: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := writeRecords(tmpPath, records); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func writeRecords(path string, records []model.Record) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(createRecordsTable); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO records (
			idx, instruction, input, output,
			instruction_x, instruction_y, output_x, output_y,
			instruction_word_count, instruction_avg_word_len,
			output_word_count, output_avg_word_len
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.Exec(
			i, rec.Instruction, rec.Input, rec.Output,
			nanToNull(rec.InstructionX), nanToNull(rec.InstructionY),
			nanToNull(rec.OutputX), nanToNull(rec.OutputY),
			rec.InstructionWordCount, rec.InstructionAvgWordLen,
			rec.OutputWordCount, rec.OutputAvgWordLen,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert record %d: %w", rec.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nanToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
