package status

import (
	"fmt"

	"placestatus/internal/hours"
)

const (
	msgNoInfo       = "영업시간 정보 없음"
	msgClosedToday  = "오늘 휴무"
	msgClosedForDay = "오늘 영업 종료"
)

// roundUpMinutes rounds m up to the next multiple of ten.
func roundUpMinutes(m int) int {
	if m <= 0 {
		return 0
	}
	return (m + 9) / 10 * 10
}

func closedTodayMessage(note string) string {
	if note == "" {
		return msgClosedToday
	}
	return fmt.Sprintf("%s (%s)", msgClosedToday, note)
}

func openMessage(from, to hours.TimeOfDay) string {
	return fmt.Sprintf("영업 중 · %s - %s", from, to)
}

func closingSoonMessage(at hours.TimeOfDay, minutes int) string {
	return fmt.Sprintf("%s에 영업 종료 (%d분 후)", at, roundUpMinutes(minutes))
}

func breakSoonMessage(at hours.TimeOfDay, minutes int) string {
	return fmt.Sprintf("%s부터 브레이크 타임 (%d분 후)", at, roundUpMinutes(minutes))
}

func onBreakMessage(until hours.TimeOfDay) string {
	return fmt.Sprintf("브레이크 타임 · %s에 영업 재개", until)
}

func openingSoonMessage(at hours.TimeOfDay, minutes int) string {
	return fmt.Sprintf("%s에 영업 시작 (%d분 후)", at, roundUpMinutes(minutes))
}

func closedAfterMessage(at hours.TimeOfDay) string {
	return fmt.Sprintf("영업 종료 · %s 마감", at)
}

func opensLaterMessage(at hours.TimeOfDay) string {
	return fmt.Sprintf("영업 준비 중 · %s에 영업 시작", at)
}
