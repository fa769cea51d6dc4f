package replyhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/nexus/internal/plugins"
	"github.com/haasonsaas/nexus/internal/timer"
)

// TimerHandler is the built-in Timer reply handler (spec §4.7,
// priority 50): it scans assistant output for set-timer, list-timers
// and remove-timer tags, replacing each with a confirmation string
// and, for set-timer, persisting a timer.Task.
//
// Grounded on the teacher's internal/tools/reminders.SetTool for the
// time-parsing idiom (parseWhen/parseRelativeTime), generalised to
// the three absolute-format variants spec §4.7 names, and on
// original_source's TimerTask/TimerStorage for field shape.
type TimerHandler struct {
	store    *timer.Store
	platform string
	logger   *slog.Logger
}

// NewTimerHandler builds a TimerHandler persisting to store. platform
// tags every timer it creates (spec §3's TimerTask.Platform).
func NewTimerHandler(store *timer.Store, platform string) *TimerHandler {
	return &TimerHandler{store: store, platform: platform, logger: slog.Default()}
}

func (h *TimerHandler) Priority() int { return 50 }

// Handle rewrites every set-timer/list-timers/remove-timer tag in
// text, leaving notify (and any unmatched) tags untouched for later
// handlers in the chain.
func (h *TimerHandler) Handle(_ context.Context, text string, pctx plugins.PluginContext) (string, bool, error) {
	out := tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		m := tagPattern.FindStringSubmatch(tag)
		name := strings.ToLower(m[1])
		attrs := parseAttrs(m[2])

		switch name {
		case "set-timer":
			return h.handleSet(attrs, pctx)
		case "list-timers":
			return h.handleList()
		case "remove-timer":
			return h.handleRemove(attrs)
		default:
			return tag
		}
	})
	return out, true, nil
}

func (h *TimerHandler) handleSet(attrs map[string]string, pctx plugins.PluginContext) string {
	reason := attrs["reason"]
	repeat := timer.RepeatStrategy(strings.ToLower(attrs["repeat"]))
	switch repeat {
	case timer.RepeatDaily, timer.RepeatWeekly, timer.RepeatMonthly:
	default:
		repeat = timer.RepeatOnce
	}

	when, err := parseWhen(attrs["time"])
	if err != nil {
		h.logger.Warn("unrecognised timer time expression, defaulting to +1h", "input", attrs["time"], "error", err)
		when = time.Now().Add(time.Hour)
	}

	task := timer.Task{
		ID:             uuid.NewString(),
		TriggerTime:    when,
		Reason:         reason,
		Repeat:         repeat,
		ContextSummary: strings.Join(pctx.RecentMessages, "\n"),
		Platform:       h.platform,
		UserID:         pctx.UserID,
		CreatedAt:      time.Now(),
		Enabled:        true,
	}
	if err := h.store.Add(task); err != nil {
		return fmt.Sprintf("[timer: failed to set — %v]", err)
	}
	return fmt.Sprintf("[timer set: %s at %s (%s), id=%s]", reason, when.Format(time.RFC3339), repeat, task.ID)
}

func (h *TimerHandler) handleList() string {
	tasks := h.store.All()
	if len(tasks) == 0 {
		return "[no timers scheduled]"
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TriggerTime.Before(tasks[j].TriggerTime) })

	var b strings.Builder
	b.WriteString("[timers:")
	for _, t := range tasks {
		fmt.Fprintf(&b, " %s=%s@%s(%s)", t.ID, t.Reason, t.TriggerTime.Format(time.RFC3339), t.Repeat)
	}
	b.WriteString("]")
	return b.String()
}

func (h *TimerHandler) handleRemove(attrs map[string]string) string {
	id := attrs["id"]
	if id == "" {
		return "[timer: remove requires id]"
	}
	ok, err := h.store.RemoveByPrefix(id)
	if err != nil {
		return fmt.Sprintf("[timer: failed to remove %s — %v]", id, err)
	}
	if !ok {
		return fmt.Sprintf("[timer: no such id %s]", id)
	}
	return fmt.Sprintf("[timer removed: %s]", id)
}

var relativeTimePattern = regexp.MustCompile(`^in\s+(\d+(?:\.\d+)?)\s*(second|minute|min|hour|hr|day|week)s?$`)

// parseWhen parses a timer time expression per spec §4.7: relative
// ("in N unit(s)"), ISO 8601, or one of three fixed absolute layouts.
func parseWhen(raw string) (time.Time, error) {
	when := strings.TrimSpace(strings.ToLower(raw))
	if when == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	if m := relativeTimePattern.FindStringSubmatch(when); m != nil {
		return parseRelativeTime(m[1], m[2])
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"01/02/2006 15:04",
		"02/01/2006 15:04",
	} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not parse time: %s", raw)
}

func parseRelativeTime(amountStr, unit string) (time.Time, error) {
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number: %s", amountStr)
	}

	var d time.Duration
	switch {
	case strings.HasPrefix(unit, "second"):
		d = time.Duration(amount * float64(time.Second))
	case strings.HasPrefix(unit, "min"):
		d = time.Duration(amount * float64(time.Minute))
	case strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hr"):
		d = time.Duration(amount * float64(time.Hour))
	case strings.HasPrefix(unit, "day"):
		d = time.Duration(amount * float64(24*time.Hour))
	case strings.HasPrefix(unit, "week"):
		d = time.Duration(amount * float64(7*24*time.Hour))
	default:
		return time.Time{}, fmt.Errorf("unknown unit: %s", unit)
	}
	return time.Now().Add(d), nil
}
