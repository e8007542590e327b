package service

import (
	"math/rand"
	"strings"
)

const (
	routerAdvice   = "Try restarting your router or checking if the cable is plugged in."
	printerAdvice  = "Check if the printer has paper and toner."
	passwordAdvice = "You can reset your password at the login page."
)

// Canned advice rules, checked in order; first match wins.
var solutionRules = []struct {
	keywords []string
	advice   string
}{
	{keywords: []string{"wifi", "internet"}, advice: routerAdvice},
	{keywords: []string{"printer"}, advice: printerAdvice},
	{keywords: []string{"password"}, advice: passwordAdvice},
}

// genericTips is the static fallback shown when no keyword matches.
var genericTips = []string{
	"Check known outage notices in the ICT updates.",
	"Restart the affected device and confirm network access.",
	"Verify account permissions and retry the action.",
}

var quickTips = []string{
	"Forgot your password? You can reset it from the login page in minutes.",
	"Slow Wi-Fi? Try reconnecting to the staff network after forgetting it.",
	"Printing issues often resolve after clearing the print queue.",
	"You can attach screenshots for faster support responses.",
}

// SuggestedSolution maps description keywords to canned advice. The
// second return value is false when nothing matches.
func SuggestedSolution(description string) (string, bool) {
	lower := strings.ToLower(description)
	for _, rule := range solutionRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.advice, true
			}
		}
	}
	return "", false
}

// RecommendedSolutions returns the keyword suggestion when one exists,
// otherwise the fixed generic tips.
func RecommendedSolutions(description string) []string {
	if advice, ok := SuggestedSolution(description); ok {
		return []string{advice}
	}
	tips := make([]string, len(genericTips))
	copy(tips, genericTips)
	return tips
}

// QuickTip picks a tip using the injected randomness source, so callers
// control seeding.
func QuickTip(rng *rand.Rand) string {
	return quickTips[rng.Intn(len(quickTips))]
}
