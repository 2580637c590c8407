package dataset

import "errors"

var (
	ErrLoad              = errors.New("dataset load failed")
	ErrInvalidInstanceID = errors.New("invalid instance id")
	ErrUnknownDataset    = errors.New("unknown dataset")
)
