package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartReportScheduler posts the shift summary to the report channel on the
// configured cron schedule (5-field: minute hour day-of-month month
// day-of-week). An empty schedule disables reporting.
func StartReportScheduler(cfg Config, store *Store, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.ReportSchedule)
	if schedule == "" {
		log.Println("Shift report disabled (report_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid report_schedule '%s': %v — shift report disabled", schedule, err)
		return
	}
	log.Printf("Shift report scheduled (cron: %s) to channel %s", schedule, cfg.ReportChannelID)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next shift report at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			text, err := ComposeShiftReport(cfg, store, time.Now().In(cfg.Location))
			if err != nil {
				log.Printf("Shift report error: %v", err)
				continue
			}
			if _, _, err := api.PostMessage(cfg.ReportChannelID, slack.MsgOptionText(text, false)); err != nil {
				log.Printf("Shift report post error: %v", err)
			}
		}
	}()
}

// ComposeShiftReport gathers the day's numbers and renders the summary,
// prepending an LLM narrative when one is configured.
func ComposeShiftReport(cfg Config, store *Store, now time.Time) (string, error) {
	cutoff := cfg.RetentionCutoff(now)
	pending, err := store.PendingWorkItems(cutoff)
	if err != nil {
		return "", fmt.Errorf("fetch pending: %w", err)
	}
	markers, err := store.PriorityMarkers()
	if err != nil {
		return "", fmt.Errorf("fetch markers: %w", err)
	}
	queue := BuildQueue(pending, PriorityByKey(markers), cutoff, 0)

	today := dayStart(now, cfg.Location)
	inspected, err := store.InspectedBetween(today, today.AddDate(0, 0, 1))
	if err != nil {
		return "", fmt.Errorf("fetch inspected: %w", err)
	}
	agg, err := AggregateAttribution(inspected, RoleInspector, now, cfg.Location, 0, "")
	if err != nil {
		return "", err
	}

	report := BuildShiftReport(now, queue, inspected, agg.Cumulative)
	text := FormatShiftReport(report)

	if cfg.LLMProvider != "" {
		narrative, usage, err := SummarizeShiftReport(cfg, text)
		if err != nil {
			log.Printf("Report narrative skipped: %v", err)
		} else if narrative != "" {
			log.Printf("Report narrative tokens_in=%d tokens_out=%d", usage.InputTokens, usage.OutputTokens)
			text = narrative + "\n\n" + text
		}
	}
	return text, nil
}
