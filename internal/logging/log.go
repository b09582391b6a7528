// Package logging provides the process-wide line logger shared by both daemons.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

var mutex sync.Mutex

var debugEnabled = os.Getenv("LOG_DEBUG") == "YES"
var requestsEnabled = os.Getenv("LOG_REQUESTS") != "NO"

// DebugEnabled reports whether LOG_DEBUG=YES was set at process start.
func DebugEnabled() bool {
	return debugEnabled
}

func logLine(tag string, line string) {
	mutex.Lock()
	defer mutex.Unlock()
	fmt.Printf("[%s] [%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), tag, line)
}

// Info logs an informational line.
func Info(line string) {
	logLine("INFO", line)
}

// Warning logs a warning line.
func Warning(line string) {
	logLine("WARNING", line)
}

// Error logs an error value as an error line.
func Error(err error) {
	if err == nil {
		return
	}
	logLine("ERROR", err.Error())
}

// ErrorMessage logs a plain error line without an error value.
func ErrorMessage(line string) {
	logLine("ERROR", line)
}

// Request logs a line tagged for HTTP/RTMP request activity, gated by LOG_REQUESTS.
func Request(sessionID uint64, ip string, line string) {
	if !requestsEnabled {
		return
	}
	logLine("REQUEST", fmt.Sprintf("[Session #%d] %s: %s", sessionID, ip, line))
}

// Debug logs a line gated by LOG_DEBUG.
func Debug(line string) {
	if !debugEnabled {
		return
	}
	logLine("DEBUG", line)
}

// DebugSession logs a debug line tagged with a session identifier.
func DebugSession(sessionID uint64, line string) {
	if !debugEnabled {
		return
	}
	logLine("DEBUG", fmt.Sprintf("[Session #%d] %s", sessionID, line))
}
