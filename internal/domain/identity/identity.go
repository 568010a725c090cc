// Package identity turns anonymous per-meet rows into deduplicated,
// origin-tagged athlete timelines.
package identity

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/liftprogress/internal/domain/dedupe"
	"github.com/okian/liftprogress/internal/domain/model"
)

// DefaultAgeToleranceYears widens the birth year bounds around a reported age.
const DefaultAgeToleranceYears = 2.0

// DefaultDuplicateYearWindow is the birth year distance within which two keys
// sharing a name are considered the same athlete.
const DefaultDuplicateYearWindow = 3

const unknownToken = "unknown"

// FilterValidRows keeps rows whose place is a non-negative integer string.
// Disqualifications and no-shows ("DQ", "NS", "G") are dropped.
func FilterValidRows(records []model.CompetitionRecord) []model.CompetitionRecord {
	out := make([]model.CompetitionRecord, 0, len(records))
	for _, r := range records {
		if isPlacing(r.Place) {
			out = append(out, r)
		}
	}
	return out
}

func isPlacing(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// EstimateYearOfBirth estimates the birth year from the event year and the
// reported age. Whole ages are moved up half a year before the bounds are
// taken. A missing age yields nil.
func EstimateYearOfBirth(eventYear int, age *float64, tolerance float64) *int {
	if age == nil || math.IsNaN(*age) {
		return nil
	}
	adjusted := *age
	if math.Mod(adjusted, 1) == 0 {
		adjusted += 0.5
	}
	minYear := float64(eventYear) - (adjusted + tolerance)
	maxYear := float64(eventYear) - (adjusted - tolerance)
	return model.Int(int(math.Floor((minYear + maxYear) / 2)))
}

// NameSlug lowercases name and joins its whitespace-separated words with
// hyphens.
func NameSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// BuildPrimaryKey returns name-sex-year, lowercased and whitespace-normalised.
// Missing sex or birth year become the "unknown" token.
func BuildPrimaryKey(name, sex string, yearOfBirth *int) string {
	sex = strings.ToLower(strings.TrimSpace(sex))
	if sex == "" {
		sex = unknownToken
	}
	year := unknownToken
	if yearOfBirth != nil {
		year = strconv.Itoa(*yearOfBirth)
	}
	return NameSlug(name) + "-" + sex + "-" + year
}

// Sort orders records by (primary key, date) ascending, keeping the input
// order of ties.
func Sort(records []model.RawRecord) {
	slices.SortStableFunc(records, func(a, b model.RawRecord) int {
		if c := cmp.Compare(a.PrimaryKey, b.PrimaryKey); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})
}

// Deduplicate sorts records and keeps the first row of every
// (primary key, date, meet name) observation, meet names compared without
// case. It is idempotent.
func Deduplicate(ctx context.Context, records []model.RawRecord) []model.RawRecord {
	sorted := slices.Clone(records)
	Sort(sorted)

	seen := dedupe.NewInMemoryDeduper(dedupe.WithExpectedSize(len(sorted)))
	out := sorted[:0]
	for _, r := range sorted {
		if seen.SeenAndRecord(ctx, dedupe.NewKey(r.PrimaryKey, r.Date, r.MeetName)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type keyInfo struct {
	key   string
	year  *int
	count int
}

// ResolveDuplicateIdentities drops every primary key that shares its name
// with another key whose birth year is within window years and which has
// strictly more records. Pairs are resolved independently, so chains of
// three or more keys may leave more than one key per athlete. Keys without a
// birth year never collide. It returns the kept rows and the dropped keys in
// ascending order.
func ResolveDuplicateIdentities(records []model.RawRecord, window int) ([]model.RawRecord, []string) {
	infos := make(map[string]*keyInfo)
	byName := make(map[string][]*keyInfo)
	for _, r := range records {
		info, ok := infos[r.PrimaryKey]
		if !ok {
			info = &keyInfo{key: r.PrimaryKey, year: r.YearOfBirth}
			infos[r.PrimaryKey] = info
			slug := NameSlug(r.Name)
			byName[slug] = append(byName[slug], info)
		}
		info.count++
	}

	drop := make(map[string]struct{})
	for _, group := range byName {
		for _, a := range group {
			for _, b := range group {
				if a == b || a.year == nil || b.year == nil {
					continue
				}
				if abs(*a.year-*b.year) > window {
					continue
				}
				if a.count < b.count {
					drop[a.key] = struct{}{}
				}
			}
		}
	}
	if len(drop) == 0 {
		return records, nil
	}

	out := make([]model.RawRecord, 0, len(records))
	for _, r := range records {
		if _, ok := drop[r.PrimaryKey]; !ok {
			out = append(out, r)
		}
	}
	dropped := make([]string, 0, len(drop))
	for k := range drop {
		dropped = append(dropped, k)
	}
	slices.Sort(dropped)
	return out, dropped
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// AssignOriginCountry sorts records and sets every row's origin country to
// the meet country of its key's chronologically first record.
func AssignOriginCountry(records []model.RawRecord) []model.RawRecord {
	out := slices.Clone(records)
	Sort(out)

	origin := make(map[string]string)
	for _, r := range out {
		if _, ok := origin[r.PrimaryKey]; !ok {
			origin[r.PrimaryKey] = r.MeetCountry
		}
	}
	for i := range out {
		out[i].OriginCountry = origin[out[i].PrimaryKey]
	}
	return out
}

// CheckRowCount fails when a step changed the number of rows.
func CheckRowCount(step string, expected, got int) error {
	if expected == got {
		return nil
	}
	return &InvariantError{Check: InvariantRowCount, Step: step, Expected: expected, Got: got}
}

// CheckOriginCountry fails when a primary key carries more than one origin
// country. The first offending key in row order is reported.
func CheckOriginCountry(records []model.RawRecord) error {
	countries := make(map[string]map[string]struct{})
	var first string
	for _, r := range records {
		set, ok := countries[r.PrimaryKey]
		if !ok {
			set = make(map[string]struct{}, 1)
			countries[r.PrimaryKey] = set
		}
		set[r.OriginCountry] = struct{}{}
		if len(set) > 1 && first == "" {
			first = r.PrimaryKey
		}
	}
	if first == "" {
		return nil
	}
	return &InvariantError{Check: InvariantOriginCountry, Key: first, Expected: 1, Got: len(countries[first])}
}
