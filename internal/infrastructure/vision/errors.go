package vision

import "errors"

var (
	// ErrUnknownArch — имя архитектуры не из поддерживаемого набора.
	ErrUnknownArch = errors.New("unknown backbone architecture")

	// ErrPoorQuality — снимок не проходит проверку качества.
	ErrPoorQuality = errors.New("quality gate failed")
)
