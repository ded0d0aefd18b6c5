package ledger

// PricingKind selects how a model's cost is computed.
type PricingKind int

// PricingKind constants define the pricing shapes.
const (
	// PricingPerToken bills by input and output token counts.
	PricingPerToken PricingKind = iota + 1
	// PricingPerUnit bills a flat rate per generated item.
	PricingPerUnit
	// PricingPerSecond bills by output duration.
	PricingPerSecond
)

// defaultDurationSeconds is assumed when a duration-priced call carries no
// duration in its metadata.
const defaultDurationSeconds = 5.0

// ModelPricing is a static price entry for one provider model. Token rates
// are USD per million tokens; PerUnit is USD per generated item; PerSecond
// is USD per second of output.
type ModelPricing struct {
	Kind             PricingKind
	InputPerMillion  float64
	OutputPerMillion float64
	PerUnit          float64
	PerSecond        float64
}

// modelPricingTable holds the static per-model price list. A model missing
// from the table costs zero; logging must never fail a user request.
var modelPricingTable = map[string]ModelPricing{
	"grok-2-latest":          {Kind: PricingPerToken, InputPerMillion: 2.00, OutputPerMillion: 10.00},
	"grok-2-mini":            {Kind: PricingPerToken, InputPerMillion: 0.30, OutputPerMillion: 0.50},
	"grok-beta":              {Kind: PricingPerToken, InputPerMillion: 5.00, OutputPerMillion: 15.00},
	"gemini-2.0-flash":       {Kind: PricingPerToken, InputPerMillion: 0.10, OutputPerMillion: 0.40},
	"gemini-2.0-flash-image": {Kind: PricingPerUnit, PerUnit: 0.02},
	"imagen-3.0":             {Kind: PricingPerUnit, PerUnit: 0.04},
	"veo-2.0":                {Kind: PricingPerSecond, PerSecond: 0.35},
	"veo-3.0-fast":           {Kind: PricingPerSecond, PerSecond: 0.07},
}

// PricingFor looks up the pricing entry for a model key.
func PricingFor(model string) (ModelPricing, bool) {
	pricing, ok := modelPricingTable[model]
	return pricing, ok
}

// EstimateCost computes the estimated USD cost of a call. Unknown models
// cost zero. durationSeconds <= 0 falls back to the default duration for
// per-second models.
func EstimateCost(model string, inputTokens, outputTokens int, durationSeconds float64) float64 {
	pricing, ok := modelPricingTable[model]
	if !ok {
		return 0
	}
	switch pricing.Kind {
	case PricingPerToken:
		return float64(inputTokens)/1_000_000*pricing.InputPerMillion +
			float64(outputTokens)/1_000_000*pricing.OutputPerMillion
	case PricingPerUnit:
		return pricing.PerUnit
	case PricingPerSecond:
		if durationSeconds <= 0 {
			durationSeconds = defaultDurationSeconds
		}
		return pricing.PerSecond * durationSeconds
	default:
		return 0
	}
}
