package delayedfeed

import "encoding/json"

// authMessage is the delayed-feed wire auth frame: {"action":"auth","params":"<key>"}
// (spec §6).
type authMessage struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// subscribeMessage is the delayed-feed wire subscribe/unsubscribe frame:
// {"action":"subscribe","params":"AM.TICK1,AM.TICK2,..."} (spec §6).
type subscribeMessage struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// event is the discriminator every server frame carries: ev ∈
// {status, AM} (spec §6). Frames may arrive singly or as a JSON array.
type event struct {
	Ev      string          `json:"ev"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	raw     json.RawMessage `json:"-"`
}

// aggMinute is the "AM" (aggregate-minute) payload shape, keyed by the
// single-letter field names the wire protocol uses (spec §6, E1 scenario).
type aggMinute struct {
	Symbol string  `json:"sym"`
	Start  int64   `json:"s"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume int64   `json:"v"`
	VWAP   float64 `json:"vw"`
	Trades int64   `json:"z"`
}

// decodeEvents parses a raw server frame, which may be a single JSON
// object or an array of them, into a slice of events each carrying its
// own raw payload for further type-specific decoding.
func decodeEvents(raw []byte) ([]event, error) {
	trimmed := raw
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\n' || trimmed[0] == '\t' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var rawEvents []json.RawMessage
		if err := json.Unmarshal(trimmed, &rawEvents); err != nil {
			return nil, err
		}
		out := make([]event, 0, len(rawEvents))
		for _, r := range rawEvents {
			var e event
			if err := json.Unmarshal(r, &e); err != nil {
				return nil, err
			}
			e.raw = r
			out = append(out, e)
		}
		return out, nil
	}

	var e event
	if err := json.Unmarshal(trimmed, &e); err != nil {
		return nil, err
	}
	e.raw = trimmed
	return []event{e}, nil
}
