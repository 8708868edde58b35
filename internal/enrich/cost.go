package enrich

// tokenRate is the USD price per 1000 tokens for one model.
type tokenRate struct {
	inputPer1K  float64
	outputPer1K float64
}

// rates is a fixed snapshot of published prices. Unknown models cost zero;
// the estimate is informational, never billing-grade.
var rates = map[string]tokenRate{
	"gemini-2.0-flash":      {inputPer1K: 0.00010, outputPer1K: 0.00040},
	"gemini-2.0-flash-lite": {inputPer1K: 0.000075, outputPer1K: 0.00030},
	"gemini-2.5-flash":      {inputPer1K: 0.00030, outputPer1K: 0.00250},
	"gemini-2.5-pro":        {inputPer1K: 0.00125, outputPer1K: 0.01000},
	"gemini-1.5-pro":        {inputPer1K: 0.00125, outputPer1K: 0.00500},
}

// Cost estimates the USD cost of one generation call.
func Cost(model string, inputTokens, outputTokens int) float64 {
	r, ok := rates[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*r.inputPer1K + float64(outputTokens)/1000*r.outputPer1K
}
