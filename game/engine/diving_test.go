package engine

import (
	"errors"
	"math"
	"testing"
)

func createTestDiver(t *testing.T, depth int) *DivingRobot {
	t.Helper()
	diver, err := NewDivingRobot(ReferenceGrid(), "Nemo", "orange", depth, At(5, 5), WithBattery(4))
	if err != nil {
		t.Fatalf("Failed to create diving robot: %v", err)
	}
	return diver
}

func TestNewDivingRobot(t *testing.T) {
	diver := createTestDiver(t, 3)
	if diver.Depth() != 3 {
		t.Errorf("Expected depth 3, got %d", diver.Depth())
	}

	if _, err := NewDivingRobot(ReferenceGrid(), "Nemo", "orange", -1); !errors.Is(err, ErrNegativeDepth) {
		t.Errorf("Expected ErrNegativeDepth, got %v", err)
	}
	if _, err := NewDivingRobot(ReferenceGrid(), "Nemo", "orange", 0, At(0, 2)); !errors.Is(err, ErrInvalidPlacement) {
		t.Errorf("Expected ErrInvalidPlacement, got %v", err)
	}
}

func TestDivingRobot_Dive(t *testing.T) {
	tests := []struct {
		name     string
		start    int
		distance int
		expected int
	}{
		{"dive deeper", 0, 5, 5},
		{"ascend partially", 5, -3, 2},
		{"ascend to surface", 5, -5, 0},
		{"ascend past surface is ignored", 2, -3, 2},
		{"zero distance", 4, 0, 4},
		{"extreme ascent is ignored", 5, math.MinInt, 5},
		{"deepest dive from surface", 0, math.MaxInt, math.MaxInt},
		{"dive past max depth is ignored", 5, math.MaxInt, 5},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			diver := createTestDiver(t, test.start)
			diver.Dive(test.distance)
			if diver.Depth() != test.expected {
				t.Errorf("Expected depth %d, got %d", test.expected, diver.Depth())
			}
		})
	}
}

func TestDivingRobot_DiveIgnoresBatteryAndGrid(t *testing.T) {
	diver := createTestDiver(t, 0)
	diver.Forward(10) // drains the battery

	if diver.Battery() != 0 {
		t.Fatalf("Expected empty battery, got %d", diver.Battery())
	}
	diver.Dive(7)
	if diver.Depth() != 7 {
		t.Errorf("Expected depth 7 with empty battery, got %d", diver.Depth())
	}
	if diver.Battery() != 0 {
		t.Errorf("Diving should not change battery, got %d", diver.Battery())
	}
}

func TestDivingRobot_KeepsRobotOperations(t *testing.T) {
	diver := createTestDiver(t, 2)

	diver.StepRight()
	if diver.Position() != (Position{Row: 5, Column: 6}) || diver.Battery() != 3 {
		t.Errorf("Expected (5,6) battery 3, got %v battery %d", diver.Position(), diver.Battery())
	}
	diver.Recharge()
	if diver.Battery() != MaxBattery {
		t.Errorf("Expected full battery, got %d", diver.Battery())
	}
	if diver.Depth() != 2 {
		t.Errorf("Horizontal movement should not change depth, got %d", diver.Depth())
	}
}

func TestDivingRobot_Summary(t *testing.T) {
	diver := createTestDiver(t, 0)
	expected := "Nemo is a orange robot diving under water."
	if diver.String() != expected {
		t.Errorf("Expected %q, got %q", expected, diver.String())
	}

	state := diver.Snapshot()
	if state.Kind != Diving || state.Summary != expected {
		t.Errorf("Unexpected snapshot %+v", state)
	}
}

func TestMoreCharged(t *testing.T) {
	low := createTestRobot(t, 0, 0, 3)
	high := createTestRobot(t, 0, 0, 9)
	diver := createTestDiver(t, 0) // battery 4

	if !MoreCharged(high, low) {
		t.Error("Expected robot with 9 to be more charged than robot with 3")
	}
	if MoreCharged(low, high) {
		t.Error("Expected robot with 3 not to be more charged than robot with 9")
	}
	if MoreCharged(low, low) {
		t.Error("A robot is not more charged than itself")
	}
	if !MoreCharged(diver, low) {
		t.Error("Expected diving robot with 4 to be more charged than robot with 3")
	}

	if Healthier(low, high) != high {
		t.Error("Healthier should pick the robot with more battery")
	}
	tie := createTestRobot(t, 0, 0, 3)
	if Healthier(low, tie) != tie {
		t.Error("Healthier should pick the second robot on a tie")
	}
}
