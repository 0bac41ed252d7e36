package action

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fieldCount = 5

var (
	ErrFieldCount = errors.New("expected 5 ';'-separated fields")
	ErrBadID      = errors.New("non-numeric id")
)

// Failure records one descriptor line that could not be parsed.
type Failure struct {
	LineNo int    `json:"lineNo"` // 1-based
	Line   string `json:"line"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// Report is the outcome of parsing a batch of descriptor lines.
type Report struct {
	Actions  []Action  `json:"actions"`
	Failures []Failure `json:"failures"`
}

// Catalog builds a catalog from the successfully parsed actions.
func (r Report) Catalog() *Catalog {
	return NewCatalog(r.Actions)
}

// Parse reads descriptor lines of the form
//
//	bot_id;group,group,...;command;return_mode;desc
//
// Every action gets timeout. A bad line is logged and reported, never fatal.
// Blank lines and lines starting with '#' are skipped.
func Parse(lines []string, timeout time.Duration) Report {
	report := Report{Actions: []Action{}, Failures: []Failure{}}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		a, err := parseLine(line, timeout)
		if err != nil {
			slog.Error("parse action failed", "line", line, "lineNo", i+1, "error", err)
			report.Failures = append(report.Failures, Failure{
				LineNo: i + 1,
				Line:   line,
				Err:    err,
				Reason: err.Error(),
			})
			continue
		}
		report.Actions = append(report.Actions, a)
	}
	return report
}

func parseLine(line string, timeout time.Duration) (Action, error) {
	fields := strings.SplitN(line, ";", fieldCount)
	if len(fields) != fieldCount {
		return Action{}, fmt.Errorf("%w, got %d", ErrFieldCount, len(fields))
	}

	botID, err := parseID(fields[0])
	if err != nil {
		return Action{}, fmt.Errorf("bot id: %w", err)
	}

	groups := []int64{}
	for _, g := range strings.Split(fields[1], ",") {
		if g == "" {
			continue
		}
		id, err := parseID(g)
		if err != nil {
			return Action{}, fmt.Errorf("group: %w", err)
		}
		groups = append(groups, id)
	}

	return Action{
		ID:         uuid.NewString(),
		BotID:      botID,
		Groups:     groups,
		Command:    fields[2],
		ReturnMode: strings.TrimSpace(fields[3]),
		Desc:       strings.TrimSpace(fields[4]),
		Timeout:    timeout,
	}, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrBadID, s)
	}
	return id, nil
}
