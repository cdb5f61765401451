package assistant

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/shlokDS16/flow-state-studio/internal/store"
)

// maxEstimateMinutes bounds parsed durations so they fit every store column.
const maxEstimateMinutes = math.MaxInt32

var (
	hoursPattern   = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*h(?:ours?|rs?)?(?:\s*(\d+)\s*m(?:in(?:ute)?s?)?)?$`)
	minutesPattern = regexp.MustCompile(`^(\d+)\s*m(?:in(?:ute)?s?)?$`)
)

// ParseDuration converts "90m", "2h", "1h 30m", "1.5 hours" or "45 minutes" to minutes.
// Fractional hours are rounded to the nearest minute.
func ParseDuration(text string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		hours, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		minutes := 0
		if m[2] != "" {
			if minutes, err = strconv.Atoi(m[2]); err != nil {
				return 0, false
			}
		}
		total := math.Round(hours*60 + float64(minutes))
		if math.IsInf(total, 0) || total > maxEstimateMinutes {
			return 0, false
		}
		return int(total), true
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		minutes, err := strconv.Atoi(m[1])
		if err != nil || minutes > maxEstimateMinutes {
			return 0, false
		}
		return minutes, true
	}
	return 0, false
}

// FormatTimeEstimate is the inverse of ParseDuration for display.
func FormatTimeEstimate(minutes int) string {
	return store.FormatMinutes(minutes)
}

var (
	nextWeekdayPattern = regexp.MustCompile(`^next\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)$`)
	inDaysPattern      = regexp.MustCompile(`^in\s+(\d+)\s+days?$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// dateLayouts are tried in order by the generic fallback of ParseDueDate.
var dateLayouts = []struct {
	layout   string
	yearless bool
}{
	{store.DateLayout, false},
	{"2006/01/02", false},
	{"1/2/2006", false},
	{"Jan 2, 2006", false},
	{"January 2, 2006", false},
	{"Jan 2 2006", false},
	{"January 2 2006", false},
	{"2 Jan 2006", false},
	{"2 January 2006", false},
	{time.RFC3339, false},
	{"Jan 2", true},
	{"January 2", true},
	{"2 Jan", true},
	{"2 January", true},
}

// ParseDueDate turns a date phrase into a YYYY-MM-DD string relative to now:
// "today", "tomorrow", "next friday", "in 3 days", or any of the common absolute layouts.
func ParseDueDate(text string, now time.Time) (string, bool) {
	raw := strings.Join(strings.Fields(text), " ")
	s := strings.ToLower(raw)
	if s == "" {
		return "", false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch s {
	case "today":
		return formatDate(today)
	case "tomorrow":
		return formatDate(today.AddDate(0, 0, 1))
	}
	if m := nextWeekdayPattern.FindStringSubmatch(s); m != nil {
		gap := (int(weekdays[m[1]]) - int(today.Weekday()) + 7) % 7
		if gap == 0 {
			gap = 7
		}
		return formatDate(today.AddDate(0, 0, gap))
	}
	if m := inDaysPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > maxDaysAhead {
			return "", false
		}
		return formatDate(today.AddDate(0, 0, n))
	}
	for _, l := range dateLayouts {
		t, err := time.ParseInLocation(l.layout, raw, now.Location())
		if err != nil {
			continue
		}
		if l.yearless {
			t = time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
		}
		return formatDate(t)
	}
	return "", false
}

// maxDaysAhead keeps "in N days" inside the four-digit years a due date can hold.
const maxDaysAhead = 10000 * 366

// formatDate rejects dates that do not round-trip through store.DateLayout.
func formatDate(t time.Time) (string, bool) {
	if t.Year() < 0 || t.Year() > 9999 {
		return "", false
	}
	return t.Format(store.DateLayout), true
}

// FormatSmartDate labels a stored due date as Today, Tomorrow, a weekday or "Jan 2".
func FormatSmartDate(date string, now time.Time) string {
	return store.SmartDate(date, now)
}

// priorityKeywords compiles store.PrioritySynonyms into whole-word matchers, in table order.
var priorityKeywords = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(store.PrioritySynonyms))
	for i, syn := range store.PrioritySynonyms {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(syn.Word) + `\b`)
	}
	return out
}()

// ParsePriority finds the first priority keyword in text; see store.PrioritySynonyms.
func ParsePriority(text string) (store.Priority, bool) {
	for i, re := range priorityKeywords {
		if re.MatchString(text) {
			return store.PrioritySynonyms[i].Priority, true
		}
	}
	return "", false
}

// ParseStatus accepts the canonical statuses and their spelling variants.
func ParseStatus(text string) (store.Status, bool) {
	return store.ParseStatus(text)
}

// ExtractLeadingEmoji splits the leading run of emoji off title. The whitespace after the
// run is dropped; the rest of the title is returned as is. emoji is empty when title does
// not start with one.
func ExtractLeadingEmoji(title string) (emoji string, rest string) {
	s := strings.TrimLeftFunc(title, unicode.IsSpace)
	end := 0
	state := -1
	remaining := s
	for len(remaining) > 0 {
		var cluster string
		cluster, remaining, _, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		if !isEmojiCluster(cluster) {
			break
		}
		end += len(cluster)
	}
	if end == 0 {
		return "", title
	}
	return s[:end], strings.TrimLeftFunc(s[end:], unicode.IsSpace)
}

// ContainsEmoji reports whether any grapheme cluster of text is an emoji.
func ContainsEmoji(text string) bool {
	return emojiIn(text) != ""
}

// emojiIn returns the emoji clusters of text concatenated in order.
func emojiIn(text string) string {
	var b strings.Builder
	state := -1
	remaining := text
	for len(remaining) > 0 {
		var cluster string
		cluster, remaining, _, state = uniseg.FirstGraphemeClusterInString(remaining, state)
		if isEmojiCluster(cluster) {
			b.WriteString(cluster)
		}
	}
	return b.String()
}

const (
	variationSelector16 = '\uFE0F'
	keycapCombiner      = '\u20E3'
)

func isEmojiCluster(cluster string) bool {
	if cluster == "" {
		return false
	}
	runes := []rune(cluster)
	first := runes[0]
	if strings.ContainsRune(cluster, keycapCombiner) {
		return first == '#' || first == '*' || (first >= '0' && first <= '9')
	}
	if unicode.Is(emojiPresentation, first) || isRegionalIndicator(first) {
		return true
	}
	return unicode.Is(textDefaultEmoji, first) && strings.ContainsRune(cluster, variationSelector16)
}

func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

// emojiPresentation holds the code points that render as emoji without a selector.
// Plain symbols sharing their blocks (⌘, ✓, ☐, ⏎) are left out.
var emojiPresentation = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23EC, Stride: 1},
		{Lo: 0x23F0, Hi: 0x23F3, Stride: 3},
		{Lo: 0x25FD, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2614, Hi: 0x2615, Stride: 1},
		{Lo: 0x2648, Hi: 0x2653, Stride: 1},
		{Lo: 0x267F, Hi: 0x2693, Stride: 0x14},
		{Lo: 0x26A1, Hi: 0x26A1, Stride: 1},
		{Lo: 0x26AA, Hi: 0x26AB, Stride: 1},
		{Lo: 0x26BD, Hi: 0x26BE, Stride: 1},
		{Lo: 0x26C4, Hi: 0x26C5, Stride: 1},
		{Lo: 0x26CE, Hi: 0x26D4, Stride: 6},
		{Lo: 0x26EA, Hi: 0x26EA, Stride: 1},
		{Lo: 0x26F2, Hi: 0x26F3, Stride: 1},
		{Lo: 0x26F5, Hi: 0x26FA, Stride: 5},
		{Lo: 0x26FD, Hi: 0x26FD, Stride: 1},
		{Lo: 0x2705, Hi: 0x2705, Stride: 1},
		{Lo: 0x270A, Hi: 0x270B, Stride: 1},
		{Lo: 0x2728, Hi: 0x2728, Stride: 1},
		{Lo: 0x274C, Hi: 0x274E, Stride: 2},
		{Lo: 0x2753, Hi: 0x2755, Stride: 1},
		{Lo: 0x2757, Hi: 0x2757, Stride: 1},
		{Lo: 0x2795, Hi: 0x2797, Stride: 1},
		{Lo: 0x27B0, Hi: 0x27BF, Stride: 0xF},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B55, Stride: 5},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F004, Hi: 0x1F0CF, Stride: 0xCB},
		{Lo: 0x1F18E, Hi: 0x1F18E, Stride: 1},
		{Lo: 0x1F191, Hi: 0x1F19A, Stride: 1},
		{Lo: 0x1F201, Hi: 0x1F201, Stride: 1},
		{Lo: 0x1F21A, Hi: 0x1F21A, Stride: 1},
		{Lo: 0x1F22F, Hi: 0x1F22F, Stride: 1},
		{Lo: 0x1F232, Hi: 0x1F236, Stride: 1},
		{Lo: 0x1F238, Hi: 0x1F23A, Stride: 1},
		{Lo: 0x1F250, Hi: 0x1F251, Stride: 1},
		{Lo: 0x1F300, Hi: 0x1FAFF, Stride: 1},
	},
}

// textDefaultEmoji holds symbols that are only emoji when followed by VS16.
var textDefaultEmoji = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00A9, Hi: 0x00AE, Stride: 5},
		{Lo: 0x203C, Hi: 0x2049, Stride: 0xD},
		{Lo: 0x2122, Hi: 0x2139, Stride: 0x17},
		{Lo: 0x2194, Hi: 0x2199, Stride: 1},
		{Lo: 0x21A9, Hi: 0x21AA, Stride: 1},
		{Lo: 0x2328, Hi: 0x23CF, Stride: 0xA7},
		{Lo: 0x23ED, Hi: 0x23EF, Stride: 1},
		{Lo: 0x23F1, Hi: 0x23F2, Stride: 1},
		{Lo: 0x23F8, Hi: 0x23FA, Stride: 1},
		{Lo: 0x24C2, Hi: 0x24C2, Stride: 1},
		{Lo: 0x25AA, Hi: 0x25AB, Stride: 1},
		{Lo: 0x25B6, Hi: 0x25C0, Stride: 0xA},
		{Lo: 0x25FB, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2600, Hi: 0x2604, Stride: 1},
		{Lo: 0x260E, Hi: 0x2611, Stride: 3},
		{Lo: 0x2618, Hi: 0x261D, Stride: 5},
		{Lo: 0x2620, Hi: 0x2620, Stride: 1},
		{Lo: 0x2622, Hi: 0x2623, Stride: 1},
		{Lo: 0x2626, Hi: 0x262A, Stride: 4},
		{Lo: 0x262E, Hi: 0x262F, Stride: 1},
		{Lo: 0x2638, Hi: 0x263A, Stride: 1},
		{Lo: 0x2640, Hi: 0x2642, Stride: 2},
		{Lo: 0x265F, Hi: 0x2660, Stride: 1},
		{Lo: 0x2663, Hi: 0x2663, Stride: 1},
		{Lo: 0x2665, Hi: 0x2666, Stride: 1},
		{Lo: 0x2668, Hi: 0x2668, Stride: 1},
		{Lo: 0x267B, Hi: 0x267B, Stride: 1},
		{Lo: 0x267E, Hi: 0x267E, Stride: 1},
		{Lo: 0x2692, Hi: 0x2692, Stride: 1},
		{Lo: 0x2694, Hi: 0x2697, Stride: 1},
		{Lo: 0x2699, Hi: 0x2699, Stride: 1},
		{Lo: 0x269B, Hi: 0x269C, Stride: 1},
		{Lo: 0x26A0, Hi: 0x26A0, Stride: 1},
		{Lo: 0x26A7, Hi: 0x26A7, Stride: 1},
		{Lo: 0x26B0, Hi: 0x26B1, Stride: 1},
		{Lo: 0x26C8, Hi: 0x26C8, Stride: 1},
		{Lo: 0x26CF, Hi: 0x26CF, Stride: 1},
		{Lo: 0x26D1, Hi: 0x26D3, Stride: 2},
		{Lo: 0x26E9, Hi: 0x26E9, Stride: 1},
		{Lo: 0x26F0, Hi: 0x26F1, Stride: 1},
		{Lo: 0x26F4, Hi: 0x26F4, Stride: 1},
		{Lo: 0x26F7, Hi: 0x26F9, Stride: 1},
		{Lo: 0x2702, Hi: 0x2702, Stride: 1},
		{Lo: 0x2708, Hi: 0x2709, Stride: 1},
		{Lo: 0x270C, Hi: 0x270D, Stride: 1},
		{Lo: 0x270F, Hi: 0x270F, Stride: 1},
		{Lo: 0x2712, Hi: 0x2712, Stride: 1},
		{Lo: 0x2714, Hi: 0x2716, Stride: 2},
		{Lo: 0x271D, Hi: 0x2721, Stride: 4},
		{Lo: 0x2733, Hi: 0x2734, Stride: 1},
		{Lo: 0x2744, Hi: 0x2747, Stride: 3},
		{Lo: 0x2763, Hi: 0x2764, Stride: 1},
		{Lo: 0x27A1, Hi: 0x27A1, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2B05, Hi: 0x2B07, Stride: 1},
		{Lo: 0x3030, Hi: 0x303D, Stride: 0xD},
		{Lo: 0x3297, Hi: 0x3299, Stride: 2},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F170, Hi: 0x1F171, Stride: 1},
		{Lo: 0x1F17E, Hi: 0x1F17F, Stride: 1},
		{Lo: 0x1F202, Hi: 0x1F202, Stride: 1},
		{Lo: 0x1F237, Hi: 0x1F237, Stride: 1},
	},
	LatinOffset: 1,
}
