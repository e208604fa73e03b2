package transcript

// Stats summarizes a transcript for listings and export footers.
type Stats struct {
	Messages   int
	ByKind     map[string]int
	ToolCalls  int
	TokensIn   int
	TokensOut  int
	CostUSD    float64
	DurationMs int64
	NumTurns   int
	Model      string
	SessionID  string
}

// Collect walks the messages once and aggregates counters. Token totals
// prefer the result event's accounting when present and fall back to summing
// per-message usage.
func Collect(msgs []Message) Stats {
	stats := Stats{ByKind: make(map[string]int)}

	var sumIn, sumOut int
	for _, m := range msgs {
		stats.Messages++
		stats.ByKind[m.Event.Kind]++

		if m.Event.Model != "" && stats.Model == "" {
			stats.Model = m.Event.Model
		}
		if m.Event.SessionID != "" && stats.SessionID == "" {
			stats.SessionID = m.Event.SessionID
		}
		if m.Event.Usage != nil {
			sumIn += m.Event.Usage.InputTokens
			sumOut += m.Event.Usage.OutputTokens
		}
		for _, b := range m.Event.Content {
			if b.Type == BlockToolUse {
				stats.ToolCalls++
			}
		}
		if m.Event.Kind == KindResult {
			stats.CostUSD = m.Event.CostUSD
			stats.DurationMs = m.Event.DurationMs
			stats.NumTurns = m.Event.NumTurns
			if m.Event.Usage != nil {
				stats.TokensIn = m.Event.Usage.InputTokens
				stats.TokensOut = m.Event.Usage.OutputTokens
			}
		}
	}

	if stats.TokensIn == 0 && stats.TokensOut == 0 {
		stats.TokensIn = sumIn
		stats.TokensOut = sumOut
	}
	return stats
}
