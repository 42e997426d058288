package amm

const (
	// FeeDenom is the basis point denominator (100%).
	FeeDenom = 10000

	// MaxFeeBps caps the trading fee at 5%.
	MaxFeeBps = 500

	// MinimumLiquidity is withheld from the first mint of an empty pool and
	// never issued to anyone.
	MinimumLiquidity = 1000

	// MaxTokenDecimals is the largest token precision a pool accepts.
	MaxTokenDecimals = 9

	// LPDecimals is the precision of the claim token.
	LPDecimals = 6
)
