package docpager

const (
	NoLimit      = -1
	MaxLimit     = 100
	DefaultLimit = 10
)

// IsNormalizedLimit clamps limit into [1, maxLimit]. A zero limit means
// "unset" and yields defaultLimit. The second return value reports whether
// limit was already in range.
func IsNormalizedLimit(limit int, defaultLimit int, maxLimit int) (int, bool) {
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	switch {
	case limit == 0:
		return defaultLimit, false
	case limit < 0:
		return 1, false
	case limit > maxLimit:
		return maxLimit, false
	}

	return limit, true
}

func IsNormalizedLimitMax(limit int, maxLimit int) (int, bool) {
	return IsNormalizedLimit(limit, DefaultLimit, maxLimit)
}

func NormalizeLimitMax(limit int, maxLimit int) int {
	ret, _ := IsNormalizedLimitMax(limit, maxLimit)
	return ret
}

func NormalizeLimit(limit int) int {
	return NormalizeLimitMax(limit, MaxLimit)
}
