package model

import (
	"fmt"
	"regexp"
	"strings"

	"WeeklyStockPrice/internal/apperr"
)

// Symbol is an exchange ticker, e.g. "AAPL", "259960.KS" or "^GSPC".
type Symbol string

var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,19}$`)

// ParseSymbol normalizes and validates a raw ticker string.
func ParseSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty symbol", apperr.ErrInvalidInput)
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: malformed symbol %q", apperr.ErrInvalidInput, raw)
	}
	return Symbol(s), nil
}

func (s Symbol) String() string { return string(s) }
