package perfmetrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// CsvHeader defines the CSV header for performance logging
var CsvHeader = []string{"Timestamp", "Client", "Direction", "FileName", "FileSizeMB", "ThroughputMBps", "TimeSec", "Result"}

// Transfer directions and results written to the log.
const (
	Upload   = "upload"
	Download = "download"

	ResultSaved    = "saved"
	ResultCorrupt  = "corrupt"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Entry is one finished transfer.
type Entry struct {
	Direction string // upload or download
	FileName  string
	Bytes     int64
	Duration  time.Duration
	Result    string
}

// Logger appends transfer timings to a CSV file.
type Logger struct {
	path   string
	client string
	mu     sync.Mutex
}

// NewLogger creates a logger writing to path. client labels every row.
func NewLogger(path, client string) *Logger {
	if client == "" {
		client = "binxfer"
	}
	return &Logger{path: path, client: client}
}

// Record appends one row, writing the header first if the file is new.
func (l *Logger) Record(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Check if file exists to determine if we need to write header
	fileExists := true
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		fileExists = false
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", l.path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if !fileExists {
		if err := writer.Write(CsvHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	sizeMB := float64(e.Bytes) / (1024 * 1024)
	seconds := e.Duration.Seconds()
	throughput := 0.0
	if seconds > 0 {
		throughput = sizeMB / seconds
	}

	record := []string{
		time.Now().Format(time.RFC3339),
		l.client,
		e.Direction,
		e.FileName,
		strconv.FormatFloat(sizeMB, 'f', 2, 64),
		strconv.FormatFloat(throughput, 'f', 2, 64),
		strconv.FormatFloat(seconds, 'f', 2, 64),
		e.Result,
	}
	if err := writer.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}

	// Ensure data is written to disk
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
