package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// maxLogLines caps how many lines a single request may return.
const maxLogLines = 10000

// LogHandlers serves the tail of the configured log file
type LogHandlers struct {
	log     zerolog.Logger
	logFile string
}

// NewLogHandlers creates a new log handlers instance. An empty logFile
// disables the endpoints.
func NewLogHandlers(log zerolog.Logger, logFile string) *LogHandlers {
	return &LogHandlers{
		log:     log.With().Str("component", "log_handlers").Logger(),
		logFile: logFile,
	}
}

// LogContentResponse represents log content
type LogContentResponse struct {
	Lines  []string `json:"lines"`
	Total  int      `json:"total"`
	Status string   `json:"status"`
}

// HandleGetLogs returns the last lines of the log file
// GET /api/logs?lines=100&level=warn&search=trading212
func (h *LogHandlers) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	lines := parseLines(r.URL.Query().Get("lines"), 100)
	level := r.URL.Query().Get("level")
	search := r.URL.Query().Get("search")

	h.log.Debug().
		Int("lines", lines).
		Str("level", level).
		Str("search", search).
		Msg("Getting log content")

	h.serve(w, lines, level, search)
}

// HandleGetErrors returns only error lines from the end of the log file
// GET /api/logs/errors?lines=500
func (h *LogHandlers) HandleGetErrors(w http.ResponseWriter, r *http.Request) {
	lines := parseLines(r.URL.Query().Get("lines"), 500)
	h.log.Debug().Int("lines", lines).Msg("Getting error logs")
	h.serve(w, lines, "error", "")
}

func (h *LogHandlers) serve(w http.ResponseWriter, lines int, level, search string) {
	if h.logFile == "" {
		h.writeJSON(w, http.StatusNotFound, LogContentResponse{Lines: []string{}, Status: "disabled"})
		return
	}

	tail, err := tailFile(h.logFile, lines)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.writeJSON(w, http.StatusOK, LogContentResponse{Lines: []string{}, Status: "empty"})
			return
		}
		h.log.Error().Err(err).Str("file", h.logFile).Msg("Failed to read log file")
		http.Error(w, "Failed to read logs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, LogContentResponse{
		Lines:  filterLogs(tail, level, search),
		Total:  len(tail),
		Status: "ok",
	})
}

func parseLines(param string, def int) int {
	lines := def
	if parsed, err := strconv.Atoi(param); err == nil && parsed > 0 {
		lines = parsed
	}
	if lines > maxLogLines {
		lines = maxLogLines
	}
	return lines
}

// tailFile returns the last n lines of path using a ring buffer.
func tailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if count <= n {
		return ring[:count], nil
	}
	start := count % n
	return append(ring[start:], ring[:start]...), nil
}

// filterLogs filters log lines by level and search term
func filterLogs(lines []string, level string, search string) []string {
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if level != "" && !lineMatchesLevel(line, level) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(line), strings.ToLower(search)) {
			continue
		}
		filtered = append(filtered, line)
	}
	return filtered
}

// lineMatchesLevel checks if a log line matches the specified level.
// Supports zerolog JSON lines and console-formatted lines.
func lineMatchesLevel(line string, level string) bool {
	if strings.Contains(line, `"level"`) {
		return strings.Contains(strings.ToLower(line), `"level":"`+strings.ToLower(level)+`"`)
	}

	upperLine := strings.ToUpper(line)
	upperLevel := strings.ToUpper(level)
	if len(upperLevel) > 3 {
		// console writer abbreviates levels to three letters
		upperLevel = upperLevel[:3]
	}
	return strings.Contains(upperLine, " "+upperLevel+" ") ||
		strings.Contains(upperLine, "["+upperLevel+"]") ||
		strings.Contains(upperLine, upperLevel+":")
}

// writeJSON writes a JSON response
func (h *LogHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
