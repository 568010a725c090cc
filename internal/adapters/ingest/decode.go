package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/okian/liftprogress/internal/domain/model"
)

const dateLayout = "2006-01-02"

var renamed = map[string]string{
	"best3_squat_kg":    "squat",
	"best3_bench_kg":    "bench",
	"best3_deadlift_kg": "deadlift",
	"total_kg":          "total",
	"bodyweight_kg":     "bodyweight",
}

var requiredColumns = []string{"name", "sex", "date", "place", "meet_name", "meet_country", "event", "total"}

// NormalizeColumn turns a CamelCase source header into the snake_case column
// name used downstream. An underscore goes before every upper case letter but
// the first, so Best3SquatKg becomes best3_squat_kg, which is then renamed to
// squat.
func NormalizeColumn(name string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(name) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	s := b.String()
	if to, ok := renamed[s]; ok {
		return to
	}
	return s
}

type columns map[string]int

func (c columns) get(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columns) float(rec []string, name string) *float64 {
	s := c.get(rec, name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return model.Float(v)
}

func (c columns) date(rec []string, name string) time.Time {
	t, err := time.Parse(dateLayout, c.get(rec, name))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Decode reads a header-led csv into competition records. Unparseable
// numbers become nil and unparseable dates the zero time, so the record
// survives to be filtered downstream.
func Decode(r io.Reader) ([]model.CompetitionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(columns, len(hdr))
	for i, h := range hdr {
		cols[NormalizeColumn(h)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var out []model.CompetitionRecord
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, model.CompetitionRecord{
			Name:             cols.get(rec, "name"),
			Sex:              cols.get(rec, "sex"),
			Age:              cols.float(rec, "age"),
			AgeClass:         cols.get(rec, "age_class"),
			Bodyweight:       cols.float(rec, "bodyweight"),
			Date:             cols.date(rec, "date"),
			MeetName:         cols.get(rec, "meet_name"),
			MeetCountry:      cols.get(rec, "meet_country"),
			MeetState:        cols.get(rec, "meet_state"),
			Federation:       cols.get(rec, "federation"),
			ParentFederation: cols.get(rec, "parent_federation"),
			Country:          cols.get(rec, "country"),
			State:            cols.get(rec, "state"),
			Equipment:        cols.get(rec, "equipment"),
			Tested:           cols.get(rec, "tested"),
			Event:            cols.get(rec, "event"),
			WeightClassKg:    cols.get(rec, "weight_class_kg"),
			Squat:            cols.float(rec, "squat"),
			Bench:            cols.float(rec, "bench"),
			Deadlift:         cols.float(rec, "deadlift"),
			Total:            cols.float(rec, "total"),
			Wilks:            cols.float(rec, "wilks"),
			Place:            cols.get(rec, "place"),
		})
	}
	return out, nil
}
