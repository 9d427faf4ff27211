// Package cells turns raw spreadsheet cell values into dates and numbers.
package cells

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// maxSerial is 9999-12-31 in the 1900 date system.
const maxSerial = 2958465

var (
	dmyRe     = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})(?:[ T].*)?$`)
	numJunkRe = regexp.MustCompile(`[^\d,.\-]`)
	yearRe    = regexp.MustCompile(`^(19|20)\d{2}$`)
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// CoerceDate converts a cell into a UTC-midnight date. It accepts time.Time,
// numeric spreadsheet serials (as numbers or numeric strings), DD/MM/YYYY and
// DD-MM-YYYY text (two-digit years are 20xx), a bare year (1900-2099, read as
// January 1st) and ISO-like text. The second
// return value is false when nothing could be parsed.
func CoerceDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return DayUTC(x), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return CoerceDate(*x)
	case float64:
		return fromSerial(x)
	case float32:
		return fromSerial(float64(x))
	case int:
		return fromSerial(float64(x))
	case int64:
		return fromSerial(float64(x))
	case string:
		return parseDateText(x)
	}
	return time.Time{}, false
}

func fromSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f < 1 || f > maxSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return time.Time{}, false
	}
	return DayUTC(t), true
}

func parseDateText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// "2024" a secas es un año, no el serial 2024
	if yearRe.MatchString(s) {
		y, _ := strconv.Atoi(s)
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	// serial guardado como texto (valores crudos de excelize)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromSerial(f)
	}
	if m := dmyRe.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, false
		}
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Day() != d {
			return time.Time{}, false
		}
		return t, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayUTC(t), true
		}
	}
	return time.Time{}, false
}

// CoerceNumber converts a cell into a number. Everything except digits,
// comma, period and minus is dropped; a minus anywhere but the front makes the
// value unparseable. A comma without any period is a
// decimal separator; several periods are thousands separators. When both
// appear, the one that comes last is the decimal separator. Anything
// unparseable is 0.
func CoerceNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		return parseNumberText(x)
	}
	return 0
}

func parseNumberText(raw string) float64 {
	s := numJunkRe.ReplaceAllString(strings.TrimSpace(raw), "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	// un guion en medio es fecha, teléfono o rango, no un número
	if s == "" || strings.Contains(s, "-") {
		return 0
	}
	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot < 0:
		// 1234,56 | 1.234,56 ya sin puntos
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case comma >= 0 && dot >= 0:
		if comma > dot {
			// 1.234.567,89
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if neg {
		f = -f
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// DayUTC drops the time of day, keeping the calendar date as seen in t's zone.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current UTC calendar date.
func Today() time.Time { return DayUTC(time.Now().UTC()) }

// Period formats a date as YYYY-MM. The zero time gives "".
func Period(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01")
}

// PeriodYear returns the year of a YYYY-MM period, or 0.
func PeriodYear(p string) int {
	if len(p) < 4 {
		return 0
	}
	y, err := strconv.Atoi(p[:4])
	if err != nil {
		return 0
	}
	return y
}
