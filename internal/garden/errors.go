package garden

import "errors"

var (
	ErrEmptyMessage     = errors.New("message is empty")
	ErrEmptySeed        = errors.New("seed needs a prompt and a response")
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotGardenMessage = errors.New("feedback applies to garden replies only")
	ErrSeedNotFound     = errors.New("seed not found")
)
