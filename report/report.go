// Package report formats benchmark results into comparison tables.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/docker/go-units"

	"github.com/weiihann/wasmbench/bench"
)

// Generate writes a markdown comparison table for the given results.
func Generate(w io.Writer, results []bench.Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to report")
	}

	outputsMatch := checkOutputs(results)
	fastestMs := findFastest(results)

	// Header.
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	if outputsMatch {
		fmt.Fprintln(w, "Outputs: **all match**")
	} else {
		fmt.Fprintln(w, "Outputs: **MISMATCH**")
		fmt.Fprintln(w)

		for _, r := range results {
			fmt.Fprintf(w, "  - %s: %s\n", r.Module, Digest(r.Output))
		}
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, "| Module | Entry Point | Elapsed | Input | Output | Speedup |")
	fmt.Fprintln(w, "|--------|-------------|---------|-------|--------|---------|")

	for _, r := range results {
		speedup := 1.0
		if fastestMs > 0 && r.ElapsedMs > 0 {
			speedup = r.ElapsedMs / fastestMs
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %.2fx |\n",
			r.Module,
			r.EntryPoint,
			FormatMs(r.ElapsedMs),
			formatBytes(r.InputBytes),
			formatBytes(len(r.Output)),
			speedup,
		)
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

// Digest returns a short fingerprint of an output for mismatch listings.
func Digest(output string) string {
	sum := sha256.Sum256([]byte(output))

	return fmt.Sprintf("%s (%s)", hex.EncodeToString(sum[:6]), formatBytes(len(output)))
}

// FormatMs renders fractional milliseconds with precision that fits the
// magnitude.
func FormatMs(ms float64) string {
	switch {
	case ms < 1:
		return fmt.Sprintf("%.3fms", ms)
	case ms < 1000:
		return fmt.Sprintf("%.2fms", ms)
	default:
		return fmt.Sprintf("%.2fs", ms/1000)
	}
}

func checkOutputs(results []bench.Result) bool {
	if len(results) < 2 {
		return true
	}

	first := results[0].Output
	for _, r := range results[1:] {
		if r.Output != first {
			return false
		}
	}

	return true
}

func findFastest(results []bench.Result) float64 {
	fastest := math.MaxFloat64
	for _, r := range results {
		if r.ElapsedMs > 0 && r.ElapsedMs < fastest {
			fastest = r.ElapsedMs
		}
	}

	if fastest == math.MaxFloat64 {
		return 0
	}

	return fastest
}

func formatBytes(n int) string {
	if n == 0 {
		return "-"
	}

	return units.BytesSize(float64(n))
}
