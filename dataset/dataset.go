// Package dataset generates the deterministic trip table the variants are
// benchmarked against.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/variant"
)

// Defaults for a generated dataset.
const (
	DefaultRows      = 100000
	DefaultBatchSize = 1000
	DefaultSeed      = 42
)

// Columns of the generated table, in insert order.
var Columns = []string{
	"id", "engineering_pod", "type", "subtype", "year", "state", "priority",
	"created_date", "trip_miles", "trip_duration", "base_num", "license_num",
}

// Value domains. States and Years are exported so default filters can be
// drawn from values that actually occur.
var (
	States  = []string{"CA", "NY", "TX", "FL", "WA", "IL", "MA", "CO", "GA", "OR"}
	Years   = []int{2019, 2020, 2021, 2022, 2023, 2024}
	pods    = []string{"atlas", "borealis", "cascade", "delta", "ember", "fjord"}
	types   = []string{"ride", "delivery", "freight", "shuttle"}
	subtype = map[string][]string{
		"ride":     {"standard", "pool", "premium"},
		"delivery": {"food", "parcel"},
		"freight":  {"ltl", "ftl"},
		"shuttle":  {"airport", "campus"},
	}
)

// Row is one generated trip.
type Row struct {
	ID             int64
	EngineeringPod string
	Type           string
	Subtype        string
	Year           int
	State          string
	Priority       int
	CreatedDate    string
	TripMiles      float64
	TripDuration   float64
	BaseNum        string
	LicenseNum     string
}

func (r Row) values() goqu.Vals {
	return goqu.Vals{
		r.ID, r.EngineeringPod, r.Type, r.Subtype, r.Year, r.State, r.Priority,
		r.CreatedDate, r.TripMiles, r.TripDuration, r.BaseNum, r.LicenseNum,
	}
}

// Generator produces rows deterministically from its seed.
type Generator struct {
	rng  *rand.Rand
	next int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed)), next: 1}
}

// Next returns the next row.
func (g *Generator) Next() Row {
	t := types[g.rng.Intn(len(types))]
	subs := subtype[t]
	year := Years[g.rng.Intn(len(Years))]
	created := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, g.rng.Intn(365))

	r := Row{
		ID:             g.next,
		EngineeringPod: pods[g.rng.Intn(len(pods))],
		Type:           t,
		Subtype:        subs[g.rng.Intn(len(subs))],
		Year:           year,
		State:          States[g.rng.Intn(len(States))],
		Priority:       1 + g.rng.Intn(5),
		CreatedDate:    created.Format("2006-01-02"),
		TripMiles:      round2(0.5 + g.rng.Float64()*80),
		TripDuration:   round2(2 + g.rng.Float64()*120),
		BaseNum:        fmt.Sprintf("B%05d", g.rng.Intn(100000)),
		LicenseNum:     fmt.Sprintf("L%07d", g.rng.Intn(10000000)),
	}
	g.next++
	return r
}

// round2 keeps two decimals so sums differ across plans by far less than
// the validation tolerance.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// Schema returns the DROP and CREATE statements for table.
func Schema(table string) []string {
	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
		fmt.Sprintf(`CREATE TABLE %s (
	id INTEGER PRIMARY KEY,
	engineering_pod VARCHAR,
	type VARCHAR,
	subtype VARCHAR,
	year INTEGER,
	state VARCHAR,
	priority INTEGER,
	created_date DATE,
	trip_miles DOUBLE,
	trip_duration DOUBLE,
	base_num VARCHAR,
	license_num VARCHAR
)`, table),
	}
}

// Spec describes the dataset to load.
type Spec struct {
	Table     string
	Rows      int
	BatchSize int
	Seed      int64
}

func (s Spec) normalize() (Spec, error) {
	if s.Table == "" {
		s.Table = variant.DefaultTable
	}
	if !variant.ValidIdentifier(s.Table) {
		return s, &common.ConfigError{Field: "dataset.table", Reason: fmt.Sprintf("invalid table name %q", s.Table)}
	}
	if s.Rows < 0 {
		return s, &common.ConfigError{Field: "dataset.rows", Reason: "must not be negative"}
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	return s, nil
}

// Statements returns the schema statements followed by multi-row INSERT
// statements of at most BatchSize rows each, rendered for d.
func Statements(d variant.Dialect, spec Spec) ([]string, error) {
	spec, err := spec.normalize()
	if err != nil {
		return nil, err
	}

	out := Schema(spec.Table)
	gen := NewGenerator(spec.Seed)
	cols := make([]any, len(Columns))
	for i, c := range Columns {
		cols[i] = c
	}

	for done := 0; done < spec.Rows; {
		n := spec.BatchSize
		if remaining := spec.Rows - done; remaining < n {
			n = remaining
		}

		vals := make([][]any, 0, n)
		for i := 0; i < n; i++ {
			vals = append(vals, gen.Next().values())
		}

		insert, _, err := d.Builder().Insert(spec.Table).Cols(cols...).Vals(vals...).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("failed to render insert batch at row %d: %w", done, err)
		}
		out = append(out, insert)
		done += n
	}

	return out, nil
}
