package lib

import (
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
)

// NewID generates a UUID version 4 string (RFC 4122)
func NewID() string {
	return uuid.NewString()
}

// logSink fans every package logger into one switchable writer.
type logSink struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

var sink = &logSink{w: io.Discard}

// NewLogger returns a logger with the given prefix that writes to the shared
// sink. Output is discarded until SetLogOutput is called.
func NewLogger(prefix string) *log.Logger {
	return log.New(sink, prefix, log.LstdFlags)
}

// SetLogOutput redirects all loggers created with NewLogger. A nil writer
// discards output again.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	sink.mu.Lock()
	sink.w = w
	sink.mu.Unlock()
}
