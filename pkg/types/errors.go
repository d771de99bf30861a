package types

import "errors"

// ErrInvalidTrade is returned when a trade fails normalization.
var ErrInvalidTrade = errors.New("invalid trade")

// ErrUnknownSeverity is returned by ParseSeverity for unrecognized names.
var ErrUnknownSeverity = errors.New("unknown severity")
