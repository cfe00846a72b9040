package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/notifyhub/jobqueue/internal/client"
	"github.com/notifyhub/jobqueue/internal/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTasks(w io.Writer, format outputFormat, tasks ...*client.Task) error {
	if format == outputJSON {
		if len(tasks) == 1 {
			return writeJSON(w, tasks[0])
		}
		return writeJSON(w, tasks)
	}
	fmt.Fprint(w, renderTable(
		[]string{"ID", "Topic", "Status", "Priority", "Attempt", "Added", "Error"},
		buildTaskRows(tasks),
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func buildTaskRows(tasks []*client.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID,
			t.Data.Topic,
			string(t.Status),
			strconv.Itoa(t.Priority),
			strconv.Itoa(t.Attempt),
			formatTime(t.AddedAt),
			truncate(t.Error, 60),
		})
	}
	return rows
}

func buildOutcomeRows(outcomes []domain.Outcome) [][]string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, []string{
			o.TaskID,
			o.Topic,
			string(o.Status),
			strconv.Itoa(o.Attempts),
			(time.Duration(o.DurationMS) * time.Millisecond).String(),
			formatTime(o.FinishedAt),
			truncate(o.Error, 60),
		})
	}
	return rows
}

func buildStatsRows(s *domain.QueueStats) [][]string {
	state := "running"
	if s.Paused {
		state = "paused"
	}
	return [][]string{
		{"State", state},
		{"Pending", strconv.Itoa(s.Pending)},
		{"Processing", strconv.Itoa(s.Processing)},
		{"Waiting to retry", strconv.Itoa(s.Delayed)},
		{"Retried, pending", strconv.Itoa(s.Retry)},
		{"Completed", strconv.Itoa(s.Completed)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Total", strconv.Itoa(s.Total)},
		{"Avg wait", fmt.Sprintf("%.1fms", s.AverageWaitMS)},
		{"Avg process", fmt.Sprintf("%.1fms", s.AverageProcessMS)},
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
