package common

import (
	"fmt"
	"math"
	"time"

	"github.com/teemow/calendar-assistant/internal/google"
)

// GetAccountFromArgs returns the "account" argument, or the default account
// when it is absent, empty or not a string.
func GetAccountFromArgs(args map[string]any) (string, error) {
	account, ok := args["account"].(string)
	if !ok || account == "" {
		return google.DefaultAccount, nil
	}
	if err := google.ValidateAccountName(account); err != nil {
		return "", err
	}
	return account, nil
}

// StringArg returns the string argument name and whether it was provided.
// Non-string values count as absent.
func StringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok
}

// StringArgOr returns the string argument name, or def when absent or empty.
func StringArgOr(args map[string]any, name, def string) string {
	if v, ok := StringArg(args, name); ok && v != "" {
		return v
	}
	return def
}

// maxMinutes is the largest minute count a time.Duration can hold.
const maxMinutes = math.MaxInt64 / int64(time.Minute)

// IntArg returns the integer argument name and whether it was provided.
// JSON numbers arrive as float64; fractional or out-of-range numbers are
// reported as provided with an error. Non-numeric values count as absent.
func IntArg(args map[string]any, name string) (int, bool, error) {
	switch v := args[name].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, true, fmt.Errorf("must be a whole number, got %v", v)
		}
		if v >= float64(math.MaxInt) || v < float64(math.MinInt) {
			return 0, true, fmt.Errorf("%v is out of range", v)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0, true, fmt.Errorf("%d is out of range", v)
		}
		return int(v), true, nil
	default:
		return 0, false, nil
	}
}

// IntArgOr returns the integer argument name, or def when absent.
func IntArgOr(args map[string]any, name string, def int) (int, error) {
	v, ok, err := IntArg(args, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// MinutesArgOr returns the argument name as a duration of whole minutes,
// or def minutes when absent. Counts a time.Duration cannot represent are
// rejected.
func MinutesArgOr(args map[string]any, name string, def int) (time.Duration, error) {
	minutes, err := IntArgOr(args, name, def)
	if err != nil {
		return 0, err
	}
	if int64(minutes) > maxMinutes || int64(minutes) < -maxMinutes {
		return 0, fmt.Errorf("%d minutes exceeds the maximum of %d", minutes, maxMinutes)
	}
	return time.Duration(minutes) * time.Minute, nil
}
