package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	ErrEmptySchedule   = errors.New("schedule required")
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Seconds are optional so "*/10 * * * * *" and "*/5 * * * *" both parse.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Spec is a parsed schedule string. Exactly one of Every and Cron is set.
type Spec struct {
	Every time.Duration
	Cron  cron.Schedule
	// Expr is the schedule as written, without any prefix.
	Expr string
}

// IsCron reports whether due times come from a cron expression.
func (s Spec) IsCron() bool { return s.Cron != nil }

func (s Spec) String() string {
	if s.IsCron() {
		return "cron " + s.Expr
	}
	return "every " + s.Every.String()
}

var reHHMM = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)

// ParseSchedule accepts
//   - cron: "*/5 * * * *", "*/10 * * * * *", "@hourly", "@every 1s"
//   - a fixed interval: "250ms", "2m30s", or HH:MM such as "00:05"
//
// A "cron:" or "every:" prefix forces the interpretation. Cron expressions
// are compiled here, so a Spec returned without error is ready to schedule.
func ParseSchedule(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, ErrEmptySchedule
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return compileCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "every:"):
		return parseEvery(strings.TrimSpace(s[len("every:"):]))
	case strings.HasPrefix(s, "@") || strings.ContainsAny(s, " \t"):
		return compileCron(s)
	}

	sp, err := parseEvery(s)
	if err != nil {
		return Spec{}, fmt.Errorf("%w %q (want cron like '*/5 * * * *', HH:MM like '00:05' or a duration like '5s')",
			ErrInvalidSchedule, raw)
	}
	return sp, nil
}

func compileCron(expr string) (Spec, error) {
	if expr == "" {
		return Spec{}, fmt.Errorf("%w: cron expression required", ErrInvalidSchedule)
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, expr, err)
	}
	return Spec{Cron: sched, Expr: expr}, nil
}

func parseEvery(v string) (Spec, error) {
	if v == "" {
		return Spec{}, fmt.Errorf("%w: interval required", ErrInvalidSchedule)
	}
	var d time.Duration
	if m := reHHMM.FindStringSubmatch(v); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if mm > 59 {
			return Spec{}, fmt.Errorf("%w: minutes in %q", ErrInvalidSchedule, v)
		}
		d = time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	} else {
		var err error
		if d, err = time.ParseDuration(v); err != nil {
			return Spec{}, fmt.Errorf("%w: interval %q", ErrInvalidSchedule, v)
		}
	}
	if d <= 0 {
		return Spec{}, fmt.Errorf("%w: interval must be > 0", ErrInvalidSchedule)
	}
	return Spec{Every: d, Expr: v}, nil
}
