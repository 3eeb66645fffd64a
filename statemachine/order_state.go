package statemachine

import (
	"fmt"

	"food-marketplace-api/errs"
	"food-marketplace-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string // "chef", "customer", "admin"
}

// validTransitions is the authoritative state machine definition.
// The forward path is PENDING → CONFIRMED → PREPARING → READY → COMPLETED;
// CANCELLED and REJECTED are absorbing side exits. An admin may drive any
// chef-side transition.
var validTransitions = []Transition{
	// Chef accepts or rejects a fresh order
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: "chef"},
	{From: models.StatusPending, To: models.StatusRejected, Actor: "chef"},
	// Customer can back out until preparation starts
	{From: models.StatusPending, To: models.StatusCancelled, Actor: "customer"},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: "customer"},
	// Chef moves the order through the kitchen
	{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: "chef"},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: "chef"},
	{From: models.StatusReady, To: models.StatusCompleted, Actor: "chef"},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
		if t.Actor == "chef" {
			m[transitionKey{t.From, t.To, "admin"}] = true
		}
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s → %s is not allowed for actor %q (valid next states from %s: %s)",
		errs.ErrInvalidTransition, from, to, actor, from, describeValidFrom(from))
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	result := ""
	for i, s := range nexts {
		if i > 0 {
			result += ", "
		}
		result += string(s)
	}
	return result
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
