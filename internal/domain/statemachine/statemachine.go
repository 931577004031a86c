package statemachine

import "fmt"

// Machine identifies which transition table governs an entity.
type Machine string

const (
	MachineCampaign    Machine = "CAMPAIGN"
	MachineApplication Machine = "APPLICATION"
	MachineOffer       Machine = "OFFER"
	MachineContract    Machine = "CONTRACT"
)

// Table maps a state to the set of states directly reachable from it.
// A state with no entry is terminal.
type Table map[string][]string

var campaignTable = Table{
	"DRAFT":  {"LIVE"},
	"LIVE":   {"PAUSED", "CLOSED"},
	"PAUSED": {"LIVE", "CLOSED"},
	"CLOSED": {},
}

var applicationTable = Table{
	"PENDING":         {"SHORTLISTED", "REJECTED", "WITHDRAWN"},
	"SHORTLISTED":     {"OFFERED", "REJECTED", "WITHDRAWN"},
	"OFFERED":         {"ACCEPTED", "REJECTED", "COUNTER_OFFERED", "WITHDRAWN"},
	"COUNTER_OFFERED": {"OFFERED", "ACCEPTED", "REJECTED", "WITHDRAWN"},
	"ACCEPTED":        {},
	"REJECTED":        {},
	"WITHDRAWN":       {},
}

var offerTable = Table{
	"PENDING":   {"ACCEPTED", "REJECTED", "EXPIRED", "COUNTERED"},
	"ACCEPTED":  {},
	"REJECTED":  {},
	"EXPIRED":   {},
	"COUNTERED": {},
}

var contractTable = Table{
	"ACTIVE":     {"DELIVERING", "CANCELLED"},
	"DELIVERING": {"IN_REVIEW", "CANCELLED"},
	"IN_REVIEW":  {"COMPLETED", "DELIVERING", "DISPUTED"},
	"DISPUTED":   {"COMPLETED", "CANCELLED"},
	"COMPLETED":  {},
	"CANCELLED":  {},
}

var tables = map[Machine]Table{
	MachineCampaign:    campaignTable,
	MachineApplication: applicationTable,
	MachineOffer:       offerTable,
	MachineContract:    contractTable,
}

// InvalidTransitionError reports a forbidden status edge. The message carries
// both states for debuggability.
type InvalidTransitionError struct {
	Machine   Machine
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot transition from %s to %s", e.Machine, e.Current, e.Requested)
}

// IsValidTransition reports whether target is directly reachable from current
// in the given machine. Unknown states and terminal states have no outgoing
// edges.
func IsValidTransition(machine Machine, current, target string) bool {
	table, ok := tables[machine]
	if !ok {
		return false
	}
	allowed, ok := table[current]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// Validate returns an InvalidTransitionError if the edge is forbidden.
func Validate(machine Machine, current, target string) error {
	if !IsValidTransition(machine, current, target) {
		return &InvalidTransitionError{Machine: machine, Current: current, Requested: target}
	}
	return nil
}

// IsTerminal reports whether state has no outgoing transitions.
func IsTerminal(machine Machine, state string) bool {
	table, ok := tables[machine]
	if !ok {
		return true
	}
	return len(table[state]) == 0
}
