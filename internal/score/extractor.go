package score

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrParse means the judge text contained no recognizable accuracy verdict.
// Callers treat this as a non-fatal evaluation failure: the raw text is
// surfaced and no score is recorded.
var ErrParse = errors.New("no accuracy score found in judge text")

// accuracyPattern locates a mention of "accuracy" followed, possibly with
// intervening words, by an integer percentage introduced by "is",
// "score is" or "score:".
//
// Two quirks are kept on purpose: percentages above 100 are not clamped,
// and decimal percentages are not recognized. The judge has never emitted
// either in practice; changing the rule is a product decision.
var accuracyPattern = regexp.MustCompile(`(?i)accuracy.*?(?:is|score is|score:)\s*(\d+)%`)

// Extract parses a judge's free-text verdict into a 0–10 score.
// The matched integer percentage is divided by 10.
func Extract(judgeText string) (float64, error) {
	m := accuracyPattern.FindStringSubmatch(judgeText)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrParse, judgeText)
	}

	pct, err := strconv.Atoi(m[1])
	if err != nil {
		// \d+ always parses unless it overflows int
		return 0, fmt.Errorf("%w: %q", ErrParse, judgeText)
	}

	return float64(pct) / 10, nil
}
