package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/examdesk/internal/api"
	"github.com/javiermolinar/examdesk/internal/assign"
	"github.com/javiermolinar/examdesk/internal/exam"
)

// DebugLogger logs keystrokes, flow transitions and results to a file.
type DebugLogger struct {
	mu      sync.Mutex
	file    *os.File
	enabled bool
	seq     int
}

// Global debug logger instance
var debugLog *DebugLogger

// DebugLogPath is the fixed path for debug logs
const DebugLogPath = "examdesk-debug.log"

// InitDebugLogger initializes the debug logger if debug mode is enabled.
func InitDebugLogger(enabled bool) error {
	if !enabled {
		debugLog = &DebugLogger{enabled: false}
		return nil
	}

	f, err := os.Create(DebugLogPath)
	if err != nil {
		return fmt.Errorf("creating debug log: %w", err)
	}

	debugLog = &DebugLogger{
		file:    f,
		enabled: true,
	}

	debugLog.log("DEBUG_START", map[string]any{
		"log_file": DebugLogPath,
		"time":     time.Now().Format(time.RFC3339),
	})

	return nil
}

// CloseDebugLogger closes the debug log file.
func CloseDebugLogger() {
	if debugLog != nil && debugLog.file != nil {
		debugLog.log("DEBUG_END", map[string]any{
			"time": time.Now().Format(time.RFC3339),
		})
		_ = debugLog.file.Close()
	}
}

func (d *DebugLogger) log(event string, data map[string]any) {
	if d == nil || !d.enabled || d.file == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	entry := map[string]any{
		"seq":   d.seq,
		"ts":    time.Now().Format("15:04:05.000"),
		"event": event,
	}
	for k, v := range data {
		entry[k] = v
	}

	b, _ := json.Marshal(entry)
	_, _ = fmt.Fprintf(d.file, "%s\n", b)
}

func debugEnabled() bool {
	return debugLog != nil && debugLog.enabled
}

// LogKeyPress logs a key press event.
func LogKeyPress(msg tea.KeyMsg) {
	if !debugEnabled() {
		return
	}
	debugLog.log("KEY_PRESS", map[string]any{
		"key": msg.String(),
	})
}

// LogPhaseChange logs a conflict review flow transition. It is installed
// as the console transition hook and runs on the command goroutine.
func LogPhaseChange(from, to assign.Phase, reason string) {
	if !debugEnabled() {
		return
	}
	debugLog.log("PHASE_CHANGE", map[string]any{
		"from":   from.String(),
		"to":     to.String(),
		"reason": reason,
	})
}

// LogCursorMove logs cursor movement.
func LogCursorMove(pos Position, reason string) {
	if !debugEnabled() {
		return
	}
	debugLog.log("CURSOR_MOVE", map[string]any{
		"day":    pos.Day,
		"slot":   pos.Slot,
		"item":   pos.Item,
		"reason": reason,
	})
}

// LogCarry logs the entity picked up.
func LogCarry(e exam.Entity, discarded bool) {
	if !debugEnabled() {
		return
	}
	debugLog.log("CARRY", map[string]any{
		"kind":      e.Kind.String(),
		"group_id":  e.Group.ID,
		"label":     truncateStr(e.Label(), 30),
		"discarded": discarded,
	})
}

// LogFlowResult logs the outcome of a console call.
func LogFlowResult(op string, res assign.Result, err error) {
	if !debugEnabled() {
		return
	}
	data := map[string]any{"op": op}
	if res.Review != nil {
		data["review"] = map[string]any{
			"original":    res.Review.Original.Key(),
			"working":     res.Review.Working.Key(),
			"conflicts":   len(res.Review.Conflicts),
			"suggestions": len(res.Review.Suggestions),
		}
	}
	if res.Settled != nil {
		data["settled"] = res.Settled.Outcome.String()
		data["exam_id"] = res.Settled.ExamID
	}
	if err != nil {
		data["error"] = err.Error()
	}
	debugLog.log("FLOW_RESULT", data)
}

// LogRequest logs a finished service request. It is installed as the api
// client request hook.
func LogRequest(info api.RequestInfo) {
	if !debugEnabled() {
		return
	}
	data := map[string]any{
		"id":          info.ID,
		"method":      info.Method,
		"path":        info.Path,
		"status":      info.Status,
		"duration_ms": info.Duration.Milliseconds(),
	}
	if info.Err != nil {
		data["error"] = info.Err.Error()
	}
	debugLog.log("REQUEST", data)
}

// LogError logs an error.
func LogError(context string, err error) {
	if !debugEnabled() {
		return
	}
	debugLog.log("ERROR", map[string]any{
		"context": context,
		"error":   err.Error(),
	})
}

// truncateStr truncates a string to max length.
func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
