// Package workload generates deterministic car documents for parser
// benchmarks. The documents carry the same irregularities as real-world
// car datasets: displacements that are sometimes quoted, fractional or
// quoted accelerations and records without a model year.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	mrand "math/rand"
)

// Record is one generated car. Displacement and Acceleration are typed as
// any because their JSON representation varies between records.
type Record struct {
	Name           string  `json:"Name"`
	MilesPerGallon float64 `json:"Miles_per_Gallon,omitempty"`
	Cylinders      int     `json:"Cylinders"`
	Displacement   any     `json:"Displacement"`
	Horsepower     int     `json:"Horsepower"`
	WeightInLbs    int     `json:"Weight_in_lbs"`
	Acceleration   any     `json:"Acceleration"`
	Year           string  `json:"Year,omitempty"`
	Origin         string  `json:"Origin"`
}

// Summary contains statistics about the generated document.
type Summary struct {
	Records             int
	MissingYears        int
	QuotedDisplacements int
	FractionalAccels    int
	QuotedAccelerations int
	Bytes               int64
}

// Config controls document generation.
type Config struct {
	NumCars int
	// Distribution shapes horsepower: power-law, exponential or uniform.
	Distribution string
	Seed         int64
	// Rates in [0, 1] for each irregularity.
	MissingYearRate float64
	QuotedRate      float64
	FractionalRate  float64
	MinHorsepower   int
	MaxHorsepower   int
}

// DefaultConfig returns a Config producing n cars with moderate
// irregularity rates.
func DefaultConfig(n int, seed int64) Config {
	return Config{
		NumCars:         n,
		Distribution:    "power-law",
		Seed:            seed,
		MissingYearRate: 0.05,
		QuotedRate:      0.2,
		FractionalRate:  0.5,
		MinHorsepower:   46,
		MaxHorsepower:   230,
	}
}

// Generator produces deterministic documents from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	if cfg.MinHorsepower <= 0 {
		cfg.MinHorsepower = 1
	}
	if cfg.MaxHorsepower < cfg.MinHorsepower {
		cfg.MaxHorsepower = cfg.MinHorsepower
	}

	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

var (
	makes   = []string{"amc", "buick", "chevrolet", "datsun", "dodge", "fiat", "ford", "honda", "mazda", "peugeot", "plymouth", "toyota", "volkswagen", "volvo"}
	models  = []string{"rebel", "skylark", "chevelle", "pl510", "challenger", "124b", "galaxie", "civic", "rx2", "504", "fury", "corolla", "rabbit", "145e"}
	trims   = []string{"", " sst", " 320", " malibu", " wagon", " deluxe", " custom", " sw", " (sw)", " gl"}
	origins = []string{"USA", "Europe", "Japan"}
)

// Generate writes a JSON array of car records to w and returns a Summary.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	cw := &countingWriter{w: w}

	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)

	var summary Summary

	if _, err := io.WriteString(cw, "["); err != nil {
		return summary, fmt.Errorf("write document start: %w", err)
	}

	horsepower := g.horsepowerDistribution()

	for i := 0; i < g.cfg.NumCars; i++ {
		if i > 0 {
			if _, err := io.WriteString(cw, ","); err != nil {
				return summary, fmt.Errorf("write separator: %w", err)
			}
		}

		rec := g.randomRecord(horsepower[i], &summary)

		if err := enc.Encode(rec); err != nil {
			return summary, fmt.Errorf("encode car %d: %w", i, err)
		}

		summary.Records++
	}

	if _, err := io.WriteString(cw, "]\n"); err != nil {
		return summary, fmt.Errorf("write document end: %w", err)
	}

	summary.Bytes = cw.n

	return summary, nil
}

func (g *Generator) randomRecord(hp int, summary *Summary) Record {
	cylinders := []int{3, 4, 4, 4, 5, 6, 6, 8, 8}[g.rng.Intn(9)]

	rec := Record{
		Name:        g.randomName(),
		Cylinders:   cylinders,
		Horsepower:  hp,
		WeightInLbs: 1600 + g.rng.Intn(3600),
		Origin:      origins[g.rng.Intn(len(origins))],
	}

	// Some classic datasets leave fuel economy blank.
	if g.rng.Float64() >= 0.02 {
		rec.MilesPerGallon = float64(9+g.rng.Intn(38)) + float64(g.rng.Intn(10))/10
	}

	displacement := 60 + cylinders*g.rng.Intn(60)
	if g.rng.Float64() < g.cfg.QuotedRate {
		rec.Displacement = fmt.Sprintf("%d", displacement)
		summary.QuotedDisplacements++
	} else {
		rec.Displacement = displacement
	}

	accel := 8 + g.rng.Intn(17)
	switch r := g.rng.Float64(); {
	case r < g.cfg.FractionalRate:
		rec.Acceleration = float64(accel) + float64(1+g.rng.Intn(9))/10
		summary.FractionalAccels++
	case r < g.cfg.FractionalRate+g.cfg.QuotedRate*(1-g.cfg.FractionalRate):
		rec.Acceleration = fmt.Sprintf("%d", accel)
		summary.QuotedAccelerations++
	default:
		rec.Acceleration = accel
	}

	if g.rng.Float64() < g.cfg.MissingYearRate {
		summary.MissingYears++
	} else {
		rec.Year = fmt.Sprintf("%d-01-01", 1970+g.rng.Intn(53))
	}

	return rec
}

func (g *Generator) randomName() string {
	return makes[g.rng.Intn(len(makes))] + " " +
		models[g.rng.Intn(len(models))] +
		trims[g.rng.Intn(len(trims))]
}

func (g *Generator) horsepowerDistribution() []int {
	dist := make([]int, g.cfg.NumCars)
	lo, hi := g.cfg.MinHorsepower, g.cfg.MaxHorsepower

	switch g.cfg.Distribution {
	case "power-law":
		alpha := 1.5
		for i := range dist {
			u := g.rng.Float64()
			hp := float64(lo) / math.Pow(1-u, 1/alpha)
			if hp > float64(hi) {
				hp = float64(hi)
			}
			dist[i] = max(lo, int(hp))
		}

	case "exponential":
		lambda := math.Log(2) / math.Max(1, float64(hi-lo)/4)
		for i := range dist {
			u := g.rng.Float64()
			hp := float64(lo) - math.Log(1-u)/lambda
			dist[i] = int(math.Min(hp, float64(hi)))
		}

	default:
		// Unknown distributions fall back to uniform.
		span := hi - lo + 1
		for i := range dist {
			dist[i] = lo + g.rng.Intn(span)
		}
	}

	return dist
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
