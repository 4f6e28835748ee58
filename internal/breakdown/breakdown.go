// Package breakdown turns a free-form goal into a short list of
// actionable task titles.
package breakdown

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	MaxGoalChars = 300
	MaxSteps     = 7
)

var ErrGoalRequired = errors.New("goal is required")

// Generator produces task titles for a goal. Implementations may call
// an external model; HeuristicGenerator is the built-in fallback.
type Generator interface {
	Generate(ctx context.Context, goal string) ([]string, error)
}

// HeuristicGenerator splits a goal into steps without calling any
// external service. It understands comma/"and"-separated goals and
// otherwise wraps the goal in a plan/do/review scaffold.
type HeuristicGenerator struct{}

func (HeuristicGenerator) Generate(_ context.Context, goal string) ([]string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, ErrGoalRequired
	}
	if len([]rune(goal)) > MaxGoalChars {
		goal = string([]rune(goal)[:MaxGoalChars])
	}

	parts := splitGoal(goal)
	if len(parts) > 1 {
		steps := make([]string, 0, len(parts))
		for _, p := range parts {
			steps = append(steps, capitalize(p))
		}
		return clamp(steps), nil
	}

	return []string{
		fmt.Sprintf("Outline what \"%s\" involves", goal),
		fmt.Sprintf("Do the first concrete step of: %s", goal),
		fmt.Sprintf("Review progress on: %s", goal),
	}, nil
}

func splitGoal(goal string) []string {
	normalized := strings.NewReplacer(";", ",", " and ", ",", " then ", ",").Replace(goal)
	var parts []string
	for _, p := range strings.Split(normalized, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func capitalize(s string) string {
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func clamp(steps []string) []string {
	if len(steps) > MaxSteps {
		return steps[:MaxSteps]
	}
	return steps
}
