package nat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVarianceCalculation(t *testing.T) {
	assert.Less(t, variance([]int32{5, 5, 5, 5, 5}), 0.01)
	assert.Less(t, variance([]int32{10, 11, 10, 11, 10}), 1.0)
}

func TestAnalyzePortAllocationFixed(t *testing.T) {
	pattern := analyzePortAllocation([]uint16{4000, 4000, 4000})
	assert.Equal(t, PatternFixed, pattern.Kind)
}

func TestAnalyzePortAllocationSequential(t *testing.T) {
	pattern := analyzePortAllocation([]uint16{4000, 4001, 4002})
	assert.Equal(t, PatternSequentialIncrement, pattern.Kind)
	assert.EqualValues(t, 1, pattern.Step)
}

func TestAnalyzePortAllocationRandom(t *testing.T) {
	pattern := analyzePortAllocation([]uint16{1000, 40000, 2500, 60000})
	assert.Equal(t, PatternRandom, pattern.Kind)
}

func TestClassifyFromPatternFullCone(t *testing.T) {
	assert.Equal(t, NatFullCone, classifyFromPattern(PortAllocationPattern{Kind: PatternFixed}, []uint16{1, 1}))
}

func TestClassifyFromPatternPortRestricted(t *testing.T) {
	natType := classifyFromPattern(PortAllocationPattern{Kind: PatternSequentialIncrement, Step: 1}, []uint16{4000, 4001, 4002})
	assert.Equal(t, NatPortRestrictedCone, natType)
}

func TestClassifyFromPatternSymmetricOnIrregularIncrement(t *testing.T) {
	natType := classifyFromPattern(PortAllocationPattern{Kind: PatternSequentialIncrement, Step: 3}, []uint16{4000, 4003, 4010})
	assert.Equal(t, NatSymmetric, natType)
}

func TestAssessDifficulty(t *testing.T) {
	assert.Equal(t, DifficultyEasy, AssessDifficulty(Behavior{Type: NatOpen}))
	assert.Equal(t, DifficultyEasy, AssessDifficulty(Behavior{Type: NatFullCone}))
	assert.Equal(t, DifficultyMedium, AssessDifficulty(Behavior{Type: NatPortRestrictedCone}))
	assert.Equal(t, DifficultyImpossible, AssessDifficulty(Behavior{Type: NatBlocked}))

	easySymmetric := Behavior{Type: NatSymmetric, PortAllocationPattern: PortAllocationPattern{Kind: PatternSequentialIncrement, Step: 5}}
	assert.Equal(t, DifficultyMedium, AssessDifficulty(easySymmetric))

	hardSymmetric := Behavior{Type: NatSymmetric, PortAllocationPattern: PortAllocationPattern{Kind: PatternHashBased}}
	assert.Equal(t, DifficultyHard, AssessDifficulty(hardSymmetric))
}
