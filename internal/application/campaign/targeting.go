package campaign

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"

	domain "github.com/collabify/collabify/internal/domain/campaign"
	"github.com/collabify/collabify/internal/domain/creator"
)

// MatchesTargeting evaluates a campaign's targeting against a creator
// profile. Nil targeting matches everyone. The structured fields (platforms,
// minimum followers) are checked first; the optional expression is evaluated
// against the profile's flattened attributes last.
func MatchesTargeting(t *domain.Targeting, profile *creator.Profile) (bool, error) {
	if t == nil || profile == nil {
		return t == nil, nil
	}

	if len(t.Platforms) > 0 && !hasAnyPlatform(t.Platforms, profile.Platforms) {
		return false, nil
	}
	if t.MinFollowers != nil && profile.TotalFollowers < *t.MinFollowers {
		return false, nil
	}
	if t.Expression == nil {
		return true, nil
	}
	return EvaluateTargetingExpression(*t.Expression, profile.TargetingParams())
}

// EvaluateTargetingExpression evaluates a boolean targeting expression, e.g.
// "followers >= 10000 && verified == true". Empty expressions match.
func EvaluateTargetingExpression(expression string, params map[string]interface{}) (bool, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return true, nil
	}
	switch strings.ToLower(expr) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	evaluable, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return false, err
	}
	result, err := evaluable.Evaluate(params)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, errors.New("expression did not evaluate to boolean")
	}
	return b, nil
}

// ValidateTargetingExpression parses an expression without evaluating it.
func ValidateTargetingExpression(expression string) error {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return nil
	}
	_, err := govaluate.NewEvaluableExpression(expr)
	return err
}

func hasAnyPlatform(wanted, have []string) bool {
	for _, w := range wanted {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}
