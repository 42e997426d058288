package storage

import "lpEngine/internal/model"

// Journal is a sink for operation outcomes.
type Journal interface {
	PutReceipts(receipts []model.Receipt) error
	PutErrors(errs []model.OperationError) error
}
