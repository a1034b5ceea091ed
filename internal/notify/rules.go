package notify

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

// Supported rule keys. A rule is a flat JSON object and every key it
// carries must match for the rule to fire.
const (
	ruleKeyEventType       = "event_type"
	ruleKeySourceURLPrefix = "source_url_prefix"
	ruleKeyDetails         = "details"
)

// RuleMatches reports whether a subscription rule matches an event. It is a
// pure function of its inputs. An empty rule matches every event. Unknown
// keys and malformed values are evaluation errors, not silent mismatches.
func RuleMatches(rule map[string]any, ev sentry.ChangeEvent) (bool, error) {
	for key, want := range rule {
		switch key {
		case ruleKeyEventType:
			s, ok := want.(string)
			if !ok {
				return false, fmt.Errorf("rule key %q: expected string, got %T", key, want)
			}
			if ev.EventType != s {
				return false, nil
			}
		case ruleKeySourceURLPrefix:
			s, ok := want.(string)
			if !ok {
				return false, fmt.Errorf("rule key %q: expected string, got %T", key, want)
			}
			if !strings.HasPrefix(ev.SourceURL, s) {
				return false, nil
			}
		case ruleKeyDetails:
			fields, ok := want.(map[string]any)
			if !ok {
				return false, fmt.Errorf("rule key %q: expected object, got %T", key, want)
			}
			for field, fv := range fields {
				got, present := ev.Details[field]
				if !present || !looselyEqual(got, fv) {
					return false, nil
				}
			}
		default:
			return false, fmt.Errorf("unknown rule key %q", key)
		}
	}
	return true, nil
}

// looselyEqual compares detail values the way JSON round-trips them, so a
// rule loaded from the database (float64 numbers) still matches events built
// in memory with int details. Decoded JSON can carry nested objects and
// arrays, which are not comparable with ==, so everything non-numeric goes
// through reflect.DeepEqual.
func looselyEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
