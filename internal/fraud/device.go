package fraud

import (
	"strings"
	"unicode"

	"voice-rewards-go/internal/types"
)

type DeviceAnalyzer struct {
	markers []string
}

func NewDeviceAnalyzer(cfg Config) *DeviceAnalyzer {
	markers := make([]string, 0, len(cfg.AutomationMarkers))
	for _, m := range cfg.AutomationMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	return &DeviceAnalyzer{markers: markers}
}

// Analyze never fails: a missing or malformed fingerprint is itself a weak
// signal.
func (a *DeviceAnalyzer) Analyze(fp *types.DeviceFingerprint) types.FraudSignal {
	if fp.Empty() {
		return types.FraudSignal{
			Kind:       types.KindDeviceAbuse,
			Score:      0.2,
			Confidence: 0.3,
			Severity:   types.SeverityLow,
			Evidence:   types.DeviceEvidence{Missing: true},
		}
	}

	ev := types.DeviceEvidence{CookiesDisabled: !fp.CookiesEnabled}
	ua := strings.ToLower(fp.UserAgent)
	tokens := strings.FieldsFunc(ua, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	for _, m := range a.markers {
		if matchesMarker(ua, tokens, m) {
			ev.AutomationMarkers = append(ev.AutomationMarkers, m)
		}
	}
	if zeroScreen(fp.ScreenSignature) {
		ev.AutomationMarkers = append(ev.AutomationMarkers, "zero_screen")
	}

	switch {
	case len(ev.AutomationMarkers) > 0:
		return types.FraudSignal{
			Kind:       types.KindDeviceAbuse,
			Score:      0.8,
			Confidence: 0.9,
			Severity:   types.SeverityHigh,
			Evidence:   ev,
		}
	case ev.CookiesDisabled:
		return types.FraudSignal{
			Kind:       types.KindDeviceAbuse,
			Score:      0.15,
			Confidence: 0.5,
			Severity:   types.SeverityLow,
			Evidence:   ev,
		}
	default:
		return types.FraudSignal{
			Kind:       types.KindDeviceAbuse,
			Confidence: 0.8,
			Severity:   types.SeverityLow,
			Evidence:   ev,
		}
	}
}

// matchesMarker matches markers carrying punctuation ("curl/", "bot/") as
// substrings and plain words only at the start of a user-agent token, so
// "HeadlessChrome" hits "headless" while a "CUBOT" handset does not hit "bot".
func matchesMarker(ua string, tokens []string, marker string) bool {
	if strings.IndexFunc(marker, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) >= 0 {
		return strings.Contains(ua, marker)
	}
	for _, t := range tokens {
		if strings.HasPrefix(t, marker) {
			return true
		}
	}
	return false
}

// zeroScreen catches headless renderers reporting a 0x0 viewport.
func zeroScreen(sig string) bool {
	sig = strings.ToLower(strings.TrimSpace(sig))
	return strings.HasPrefix(sig, "0x0") || strings.HasPrefix(sig, "0,0")
}
