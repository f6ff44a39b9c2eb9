package bot

import "strings"

// buildAlerts собирает звуковые реакции на события из hooks.
func (b *Bot) buildAlerts(h HooksConfig) map[string]func() {
	out := make(map[string]func())
	if cb := b.callbackForSound(h.OnDeath); cb != nil {
		out["death"] = cb
	}
	for event, sound := range h.Sounds {
		if cb := b.callbackForSound(sound); cb != nil {
			out[strings.ToLower(event)] = cb
		}
	}
	return out
}

func (b *Bot) fireAlert(event string) {
	b.confMu.RLock()
	cb := b.alerts[event]
	b.confMu.RUnlock()
	if cb != nil {
		go cb()
	}
}
