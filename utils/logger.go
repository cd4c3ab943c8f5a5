// Package utils provides utility functions for the application.
package utils

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger routes the standard logger to both stdout and a size-rotated
// file. An empty path keeps logging on stdout only.
func SetupLogger(path string, maxSizeMB, maxBackups, maxAgeDays int) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)

	if path == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
}
