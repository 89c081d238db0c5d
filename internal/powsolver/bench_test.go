package powsolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshivanandham/exasol-pow-client/internal/hashutil"
	"github.com/dshivanandham/exasol-pow-client/internal/powsolver"
)

func TestRunPowBenchmarkFindsSatisfyingSuffix(t *testing.T) {
	for _, multithreaded := range []bool{false, true} {
		for _, strategy := range []powsolver.Strategy{
			powsolver.StrategyCounter,
			powsolver.StrategyRandomHex,
			powsolver.StrategyRandomString,
		} {
			result := powsolver.RunPowBenchmark("bench-authdata", 1, multithreaded, strategy)
			digest := hashutil.Sum([]byte("bench-authdata" + result.Suffix))
			assert.True(t, hashutil.LeadingZeroNibbles(digest[:], 1),
				"multithreaded=%v strategy=%v suffix=%q failed predicate", multithreaded, strategy, result.Suffix)
		}
	}
}

func TestGenerateSuffixIsHex(t *testing.T) {
	assert.Equal(t, "ff", powsolver.GenerateSuffix(255))
	assert.Equal(t, "0", powsolver.GenerateSuffix(0))
}

func TestBenchmarkSuffixGenerationCoversAllStrategies(t *testing.T) {
	results := powsolver.BenchmarkSuffixGeneration(1000)
	seen := map[powsolver.Strategy]bool{}
	for _, r := range results {
		seen[r.Strategy] = true
	}
	assert.True(t, seen[powsolver.StrategyCounter])
	assert.True(t, seen[powsolver.StrategyRandomHex])
	assert.True(t, seen[powsolver.StrategyRandomString])
}
