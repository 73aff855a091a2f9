package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hcen-uy/exchange-hub/internal/model"
)

// TimeBasedEvaluator applies the policy's effect only when the request
// falls on an allowed day of week and inside the allowed hour range.
// An hour range whose end precedes its start wraps past midnight
// (e.g. "22:00-06:00").
type TimeBasedEvaluator struct{}

func (e *TimeBasedEvaluator) Supports(t model.PolicyType) bool {
	return t == model.PolicyTypeTimeBased
}

func (e *TimeBasedEvaluator) Evaluate(_ context.Context, policy *model.AccessPolicy, access *model.AccessContext) Result {
	var cfg model.TimePolicyConfig
	if err := json.Unmarshal(policy.Config, &cfg); err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed time policy config, skipping")
		return NotApplicable
	}

	if !dayAllowed(cfg.AllowedDays, access.RequestTime.Weekday()) {
		return NotApplicable
	}

	inRange, err := hourInRange(cfg.AllowedHours, access.RequestTime)
	if err != nil {
		log.Warn().Err(err).Str("policy_id", policy.ID.String()).Msg("malformed time policy hours, skipping")
		return NotApplicable
	}
	if !inRange {
		return NotApplicable
	}

	return effectResult(policy.Effect)
}

func dayAllowed(allowed []string, day time.Weekday) bool {
	name := strings.ToUpper(day.String())
	for _, d := range allowed {
		if strings.ToUpper(d) == name {
			return true
		}
	}
	return false
}

// hourInRange parses an "HH:mm-HH:mm" range and checks t against it.
func hourInRange(spec string, t time.Time) (bool, error) {
	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return false, fmt.Errorf("invalid hour range %q", spec)
	}

	start, err := parseMinutes(parts[0])
	if err != nil {
		return false, err
	}
	end, err := parseMinutes(parts[1])
	if err != nil {
		return false, err
	}

	current := t.Hour()*60 + t.Minute()
	if start <= end {
		return current >= start && current <= end, nil
	}
	// Range wraps past midnight.
	return current >= start || current <= end, nil
}

func parseMinutes(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}
