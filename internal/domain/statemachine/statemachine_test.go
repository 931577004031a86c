package statemachine

import (
	"errors"
	"testing"
)

func TestCampaignTransitions(t *testing.T) {
	valid := [][2]string{
		{"DRAFT", "LIVE"},
		{"LIVE", "PAUSED"},
		{"LIVE", "CLOSED"},
		{"PAUSED", "LIVE"},
		{"PAUSED", "CLOSED"},
	}
	for _, tr := range valid {
		if !IsValidTransition(MachineCampaign, tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be valid", tr[0], tr[1])
		}
	}
	invalid := [][2]string{
		{"DRAFT", "PAUSED"},
		{"DRAFT", "CLOSED"},
		{"LIVE", "DRAFT"},
		{"CLOSED", "LIVE"},
	}
	for _, tr := range invalid {
		if IsValidTransition(MachineCampaign, tr[0], tr[1]) {
			t.Errorf("expected %s -> %s to be invalid", tr[0], tr[1])
		}
	}
}

func TestApplicationTerminalStates(t *testing.T) {
	for _, state := range []string{"ACCEPTED", "REJECTED", "WITHDRAWN"} {
		if !IsTerminal(MachineApplication, state) {
			t.Errorf("expected %s to be terminal", state)
		}
	}
	if IsTerminal(MachineApplication, "PENDING") {
		t.Error("PENDING should not be terminal")
	}
}

func TestCounterOfferLoop(t *testing.T) {
	// A negotiation can bounce between OFFERED and COUNTER_OFFERED.
	if !IsValidTransition(MachineApplication, "OFFERED", "COUNTER_OFFERED") {
		t.Fatal("expected OFFERED -> COUNTER_OFFERED to be valid")
	}
	if !IsValidTransition(MachineApplication, "COUNTER_OFFERED", "OFFERED") {
		t.Fatal("expected COUNTER_OFFERED -> OFFERED to be valid")
	}
}

func TestContractReviewCycle(t *testing.T) {
	path := []string{"ACTIVE", "DELIVERING", "IN_REVIEW", "DELIVERING", "IN_REVIEW", "COMPLETED"}
	for i := 0; i < len(path)-1; i++ {
		if err := Validate(MachineContract, path[i], path[i+1]); err != nil {
			t.Fatalf("step %s -> %s: %v", path[i], path[i+1], err)
		}
	}
	if err := Validate(MachineContract, "COMPLETED", "ACTIVE"); err == nil {
		t.Fatal("expected COMPLETED to have no outgoing transitions")
	}
}

func TestOfferSingleHop(t *testing.T) {
	for _, target := range []string{"ACCEPTED", "REJECTED", "EXPIRED", "COUNTERED"} {
		if !IsValidTransition(MachineOffer, "PENDING", target) {
			t.Errorf("expected PENDING -> %s to be valid", target)
		}
		if !IsTerminal(MachineOffer, target) {
			t.Errorf("expected %s to be terminal", target)
		}
	}
}

func TestValidateErrorDetails(t *testing.T) {
	err := Validate(MachineCampaign, "CLOSED", "LIVE")
	var tErr *InvalidTransitionError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if tErr.Current != "CLOSED" || tErr.Requested != "LIVE" {
		t.Fatalf("error carries wrong states: %v", tErr)
	}
}

func TestUnknownMachineAndState(t *testing.T) {
	if IsValidTransition(Machine("BOGUS"), "A", "B") {
		t.Error("unknown machine should have no transitions")
	}
	if IsValidTransition(MachineCampaign, "BOGUS", "LIVE") {
		t.Error("unknown state should have no transitions")
	}
	if !IsTerminal(Machine("BOGUS"), "A") {
		t.Error("unknown machine states are terminal")
	}
}
