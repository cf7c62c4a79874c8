package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"placestatus/internal/hours"
	"placestatus/internal/status"
)

// Place is the input of a weekly report.
type Place struct {
	Name         string
	OpeningHours string
	ClosedDays   []status.ClosedDayRule
}

// Timeline is the status of a place sampled over one week.
type Timeline struct {
	Days  []time.Time
	Slots []hours.TimeOfDay
	// Cells[slot][day]
	Cells [][]status.PlaceStatusInfo
}

var kindColors = map[status.Kind]string{
	status.KindOpen:         "C6EFCE",
	status.KindClosingSoon:  "FFEB9C",
	status.KindBreakSoon:    "FFEB9C",
	status.KindOnBreak:      "F8CBAD",
	status.KindOpeningSoon:  "DDEBF7",
	status.KindClosedForDay: "D9D9D9",
}

// WeekStart returns midnight of the Monday of date's week.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	y, m, d := date.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location())
}

// BuildTimeline evaluates the place every step across the week containing weekOf.
func BuildTimeline(e *status.Evaluator, p Place, weekOf time.Time, step time.Duration) Timeline {
	if step <= 0 {
		step = 30 * time.Minute
	}

	start := WeekStart(weekOf)
	tl := Timeline{}
	for i := 0; i < 7; i++ {
		tl.Days = append(tl.Days, start.AddDate(0, 0, i))
	}
	for m := 0; m < 24*60; m += int(step / time.Minute) {
		tl.Slots = append(tl.Slots, hours.TimeOfDay{Hour: m / 60, Minute: m % 60})
	}

	tl.Cells = make([][]status.PlaceStatusInfo, len(tl.Slots))
	for i, slot := range tl.Slots {
		row := make([]status.PlaceStatusInfo, len(tl.Days))
		for j, day := range tl.Days {
			row[j] = e.Evaluate(p.OpeningHours, p.ClosedDays, slot.OnDate(day))
		}
		tl.Cells[i] = row
	}
	return tl
}

// WriteWeekly renders the timeline and the parsed weekly hours as an .xlsx workbook.
func WriteWeekly(wr io.Writer, e *status.Evaluator, p Place, weekOf time.Time, step time.Duration) error {
	tl := BuildTimeline(e, p, weekOf, step)

	w := newSheetWriter()
	defer w.close()

	if err := w.addSheet("주간 현황"); err != nil {
		return err
	}

	header := []string{"시간"}
	for _, d := range tl.Days {
		header = append(header, fmt.Sprintf("%s (%s)", d.Format("01-02"), hours.WeekdayToken(d.Weekday())))
	}
	if err := w.writeHeader(header); err != nil {
		return err
	}

	for i, slot := range tl.Slots {
		row := []any{slot.String()}
		for _, info := range tl.Cells[i] {
			row = append(row, info.Status.Label())
		}
		if err := w.writeRow(row); err != nil {
			return err
		}
		for j, info := range tl.Cells[i] {
			if color, ok := kindColors[info.Status]; ok {
				if err := w.fillCell(j+2, color); err != nil {
					return err
				}
			}
		}
	}

	if err := writeHoursSheet(w, p); err != nil {
		return err
	}
	if err := writeLegendSheet(w); err != nil {
		return err
	}

	return w.save(wr)
}

func writeLegendSheet(w *sheetWriter) error {
	if err := w.addSheet("범례"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"상태", "코드"}); err != nil {
		return err
	}
	for _, k := range status.Kinds {
		if err := w.writeRow([]any{k.Label(), string(k)}); err != nil {
			return err
		}
		if color, ok := kindColors[k]; ok {
			if err := w.fillCell(1, color); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHoursSheet(w *sheetWriter, p Place) error {
	if err := w.addSheet("영업시간"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"요일", "영업시간", "브레이크"}); err != nil {
		return err
	}

	week := hours.Describe(p.OpeningHours)
	// Monday first, matching the timeline.
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		day := week[d]

		ranges := make([]string, 0, len(day.OpenRanges))
		for _, r := range day.OpenRanges {
			ranges = append(ranges, r.String())
		}
		hoursText := strings.Join(ranges, ", ")
		if hoursText == "" {
			hoursText = "-"
		}
		breakText := "-"
		if day.Break != nil {
			breakText = day.Break.Start.String() + "-" + day.Break.End.String()
		}

		if err := w.writeRow([]any{hours.WeekdayToken(d), hoursText, breakText}); err != nil {
			return err
		}
	}

	return w.writeRow([]any{"원문", p.OpeningHours, ""})
}
