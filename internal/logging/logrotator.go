// Package logging persists decoded DCF77 minutes to a daily-rotated,
// gzip-compressed CSV log.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// MinuteRecord is one decoded DCF77 minute: the Unix epoch the pipeline
// resolved and the human-readable timestamp the caller formatted for it
// (internal/app formats this with strftime).
type MinuteRecord struct {
	Epoch     int64
	Formatted string
}

// csvLine renders the record as one line of the rotated log: epoch first
// so the file sorts and greps naturally, formatted timestamp for humans.
func (r MinuteRecord) csvLine() string {
	return fmt.Sprintf("%d,%s\n", r.Epoch, r.Formatted)
}

// MinuteLogger rotates the decoded-minute log daily and gzip-compresses
// the previous day's file once rotation happens.
type MinuteLogger struct {
	logDir      string
	useUTC      bool
	logger      *logrus.Logger
	currentFile *os.File
	currentDate string
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewMinuteLogger creates a MinuteLogger, creating logDir if necessary.
func NewMinuteLogger(logDir string, useUTC bool, logger *logrus.Logger) (*MinuteLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &MinuteLogger{
		logDir: logDir,
		useUTC: useUTC,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := m.rotateLogFile(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}

	return m, nil
}

// Start runs the rotation scheduler until ctx is canceled or Close is called.
func (m *MinuteLogger) Start(ctx context.Context) {
	m.logger.Info("starting minute logger")

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("minute logger stopping")
			return
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkRotation()
		}
	}
}

func (m *MinuteLogger) now() time.Time {
	if m.useUTC {
		return time.Now().UTC()
	}
	return time.Now()
}

func (m *MinuteLogger) checkRotation() {
	currentDate := m.now().Format("2006-01-02")

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.currentDate != currentDate {
		m.logger.WithFields(logrus.Fields{
			"old_date": m.currentDate,
			"new_date": currentDate,
		}).Info("rotating minute log")

		if err := m.rotateLogFile(); err != nil {
			m.logger.WithError(err).Error("failed to rotate minute log")
		}
	}
}

func (m *MinuteLogger) rotateLogFile() error {
	newDate := m.now().Format("2006-01-02")

	if m.currentFile != nil {
		oldFile := m.currentFile
		oldDate := m.currentDate

		if err := oldFile.Close(); err != nil {
			m.logger.WithError(err).Error("failed to close old minute log")
		}

		go m.compressLogFile(oldDate)
	}

	fullPath := filepath.Join(m.logDir, fmt.Sprintf("dcf77_%s.log", newDate))

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create minute log %s: %w", fullPath, err)
	}

	m.currentFile = file
	m.currentDate = newDate

	m.logger.WithField("file", fullPath).Info("opened new minute log")

	return nil
}

func (m *MinuteLogger) compressLogFile(date string) {
	logFile := filepath.Join(m.logDir, fmt.Sprintf("dcf77_%s.log", date))
	gzipFile := filepath.Join(m.logDir, fmt.Sprintf("dcf77_%s.log.gz", date))

	m.logger.WithFields(logrus.Fields{
		"source": logFile,
		"target": gzipFile,
	}).Info("compressing minute log")

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		m.logger.WithField("file", logFile).Debug("minute log doesn't exist, skipping compression")
		return
	}

	src, err := os.Open(logFile)
	if err != nil {
		m.logger.WithError(err).WithField("file", logFile).Error("failed to open source file for compression")
		return
	}
	defer src.Close()

	dst, err := os.Create(gzipFile)
	if err != nil {
		m.logger.WithError(err).WithField("file", gzipFile).Error("failed to create compressed file")
		return
	}
	defer dst.Close()

	gzWriter := gzip.NewWriter(dst)
	defer gzWriter.Close()

	gzWriter.Name = filepath.Base(logFile)
	gzWriter.ModTime = m.now()

	if _, err := io.Copy(gzWriter, src); err != nil {
		m.logger.WithError(err).Error("failed to compress minute log")
		return
	}

	if err := gzWriter.Close(); err != nil {
		m.logger.WithError(err).Error("failed to close gzip writer")
		return
	}

	if err := dst.Close(); err != nil {
		m.logger.WithError(err).Error("failed to close compressed file")
		return
	}

	if err := os.Remove(logFile); err != nil {
		m.logger.WithError(err).WithField("file", logFile).Error("failed to remove original minute log")
		return
	}

	m.logger.WithField("file", gzipFile).Info("minute log compressed successfully")
}

// LogMinute appends one decoded minute to the current day's log file.
func (m *MinuteLogger) LogMinute(record MinuteRecord) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.currentFile == nil {
		return fmt.Errorf("no current minute log")
	}

	if _, err := m.currentFile.WriteString(record.csvLine()); err != nil {
		return fmt.Errorf("failed to write decoded minute: %w", err)
	}
	return nil
}

// Close stops rotation and closes the current log file.
func (m *MinuteLogger) Close() error {
	m.logger.Info("closing minute logger")

	m.cancel()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.currentFile != nil {
		if err := m.currentFile.Close(); err != nil {
			m.logger.WithError(err).Error("failed to close current minute log")
			return err
		}
		m.currentFile = nil
	}

	return nil
}

// GetCurrentLogFile returns the path of the log file currently being written.
func (m *MinuteLogger) GetCurrentLogFile() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.currentDate == "" {
		return ""
	}

	return filepath.Join(m.logDir, fmt.Sprintf("dcf77_%s.log", m.currentDate))
}

// GetLogFiles lists every minute log file in logDir, compressed or not.
func (m *MinuteLogger) GetLogFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(m.logDir, "dcf77_*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list minute logs: %w", err)
	}

	return files, nil
}

// CleanupOldLogs removes log files whose modification time is older than
// maxDays, leaving the current log file untouched.
func (m *MinuteLogger) CleanupOldLogs(maxDays int) error {
	if maxDays <= 0 {
		return fmt.Errorf("maxDays must be positive")
	}

	files, err := m.GetLogFiles()
	if err != nil {
		return fmt.Errorf("failed to get minute logs: %w", err)
	}

	cutoff := m.now().AddDate(0, 0, -maxDays)

	removed := 0
	for _, file := range files {
		if file == m.GetCurrentLogFile() {
			continue
		}

		info, err := os.Stat(file)
		if err != nil {
			m.logger.WithError(err).WithField("file", file).Warn("failed to stat minute log")
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err != nil {
				m.logger.WithError(err).WithField("file", file).Error("failed to remove old minute log")
			} else {
				m.logger.WithField("file", file).Info("removed old minute log")
				removed++
			}
		}
	}

	m.logger.WithField("count", removed).Info("cleaned up old minute logs")
	return nil
}
