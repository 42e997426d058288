package model

// Receipt records the outcome of a committed operation.
type Receipt struct {
	Seq    uint64 `json:"seq,omitempty"`
	Op     OpKind `json:"op"`
	PoolID string `json:"pool_id"`
	Caller string `json:"caller,omitempty"`

	AmountX   uint64 `json:"amount_x,omitempty"`
	AmountY   uint64 `json:"amount_y,omitempty"`
	LPMinted  uint64 `json:"lp_minted,omitempty"`
	LPBurned  uint64 `json:"lp_burned,omitempty"`
	XToY      bool   `json:"x_to_y,omitempty"`
	AmountIn  uint64 `json:"amount_in,omitempty"`
	AmountOut uint64 `json:"amount_out,omitempty"`

	// credit
	Asset  string `json:"asset,omitempty"`
	Amount uint64 `json:"amount,omitempty"`

	// State is the pool state after the operation.
	State *PoolState `json:"state,omitempty"`
}

// OperationError records a rejected request.
type OperationError struct {
	Seq    uint64 `json:"seq"`
	Op     OpKind `json:"op"`
	PoolID string `json:"pool_id"`
	Kind   string `json:"kind"`
	Code   uint32 `json:"code"`
	Error  string `json:"error"`
}
