package model

// OpKind names a pool operation.
type OpKind string

const (
	OpInitialize OpKind = "initialize"
	OpDeposit    OpKind = "deposit"
	OpWithdraw   OpKind = "withdraw"
	OpSwap       OpKind = "swap"
	OpLock       OpKind = "lock"
	OpUnlock     OpKind = "unlock"
	OpCredit     OpKind = "credit"
)

// Request is one line of a replay input file. Only the fields relevant to
// Op are read.
type Request struct {
	Seq    uint64 `json:"seq"`
	Op     OpKind `json:"op"`
	PoolID string `json:"pool_id"`
	Caller string `json:"caller,omitempty"`

	// initialize
	TokenX    string  `json:"token_x,omitempty"`
	TokenY    string  `json:"token_y,omitempty"`
	FeeBps    uint16  `json:"fee_bps,omitempty"`
	Authority *string `json:"authority,omitempty"`

	// deposit
	AmountX uint64 `json:"amount_x,omitempty"`
	AmountY uint64 `json:"amount_y,omitempty"`
	MinLP   uint64 `json:"min_lp,omitempty"`

	// withdraw
	LPAmount uint64 `json:"lp_amount,omitempty"`
	MinX     uint64 `json:"min_x,omitempty"`
	MinY     uint64 `json:"min_y,omitempty"`

	// swap
	XToY     bool   `json:"x_to_y,omitempty"`
	AmountIn uint64 `json:"amount_in,omitempty"`
	MinOut   uint64 `json:"min_out,omitempty"`

	// credit
	Asset  string `json:"asset,omitempty"`
	Amount uint64 `json:"amount,omitempty"`
}
