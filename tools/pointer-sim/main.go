package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// pointer-sim opens a grid session against a running schedule-service and
// replays a press-hold-drag-release sequence, then commits the resolved
// selection as an appointment. Useful for smoke-testing the pointer API
// without a browser.
func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "schedule-service base url")
		startDate = flag.String("start-date", getenv("START_DATE", time.Now().Format("2006-01-02")), "first date of the grid window (YYYY-MM-DD)")
		days      = flag.Int("days", 1, "number of days in the window")
		category  = flag.String("category", "", "staff category filter")
		dateIdx   = flag.Int("date", 0, "date column index")
		staffIdx  = flag.Int("staff", 0, "staff column index")
		fromSlot  = flag.Int("from", 0, "first slot index of the drag")
		toSlot    = flag.Int("to", 0, "last slot index of the drag")
		holdMS    = flag.Int("hold-ms", 250, "press-to-move delay in milliseconds")
		title     = flag.String("title", "simulated visit", "appointment title")
		commit    = flag.Bool("commit", true, "commit the resolved selection")
	)
	flag.Parse()

	base := strings.TrimRight(*baseURL, "/")

	var opened struct {
		SessionID string `json:"session_id"`
		From      string `json:"from"`
		To        string `json:"to"`
		Slots     []struct {
			Index     int    `json:"index"`
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
		} `json:"slots"`
	}
	post(base+"/api/v1/sessions", map[string]any{
		"start_date": *startDate,
		"days":       *days,
		"category":   *category,
	}, &opened)
	fmt.Printf("session=%s window=%s..%s slots=%d\n", opened.SessionID, opened.From, opened.To, len(opened.Slots))

	t0 := time.Now().UTC()
	pointer(base, opened.SessionID, "down", *dateIdx, *staffIdx, *fromSlot, t0)
	at := t0.Add(time.Duration(*holdMS) * time.Millisecond)
	for slot := *fromSlot; slot <= *toSlot; slot++ {
		pointer(base, opened.SessionID, "move", *dateIdx, *staffIdx, slot, at)
		at = at.Add(20 * time.Millisecond)
	}
	result := pointer(base, opened.SessionID, "up", *dateIdx, *staffIdx, *toSlot, at)
	if result.Selection == nil {
		fatal("pointer release resolved no selection")
	}
	fmt.Printf("selected %s %s-%s staff=%s\n",
		result.Selection.Date, result.Selection.StartTime, result.Selection.EndTime, result.Selection.StaffID)

	if !*commit {
		return
	}
	var created struct {
		ID        string `json:"id"`
		StaffName string `json:"staff_name"`
	}
	post(base+"/api/v1/sessions/appointments", map[string]any{
		"session_id": opened.SessionID,
		"selection": map[string]int{
			"date_index":       result.Selection.DateIndex,
			"staff_index":      result.Selection.StaffIndex,
			"start_time_index": result.Selection.StartTimeIndex,
			"end_time_index":   result.Selection.EndTimeIndex,
		},
		"title": *title,
		"type":  "general",
	}, &created)
	fmt.Printf("created id=%s staff=%s\n", created.ID, created.StaffName)
}

type pointerResult struct {
	State     string `json:"state"`
	Selection *struct {
		DateIndex      int    `json:"date_index"`
		StaffIndex     int    `json:"staff_index"`
		StartTimeIndex int    `json:"start_time_index"`
		EndTimeIndex   int    `json:"end_time_index"`
		Date           string `json:"date"`
		StaffID        string `json:"staff_id"`
		StartTime      string `json:"start_time"`
		EndTime        string `json:"end_time"`
	} `json:"selection"`
}

func pointer(base, sessionID, action string, dateIdx, staffIdx, timeIdx int, at time.Time) pointerResult {
	var out pointerResult
	post(base+"/api/v1/sessions/pointer", map[string]any{
		"session_id":  sessionID,
		"action":      action,
		"date_index":  dateIdx,
		"staff_index": staffIdx,
		"time_index":  timeIdx,
		"at":          at.Format(time.RFC3339Nano),
	}, &out)
	return out
}

func post(url string, body any, out any) {
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("%s: status %d", url, resp.StatusCode))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			fatal(err.Error())
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
