package chat

// DiceCoefficient scores two strings on character bigrams. The score is
// symmetric, bounded in [0,1], and 1.0 for identical strings. Callers are
// expected to fold case and diacritics first (see Normalize).
func DiceCoefficient(a, b string) float64 {
	if a == b {
		return 1.0
	}

	bigramsA := bigrams(a)
	bigramsB := bigrams(b)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(bigramsA))
	totalA := 0
	for bg, n := range bigramsA {
		counts[bg] = n
		totalA += n
	}

	overlap := 0
	totalB := 0
	for bg, n := range bigramsB {
		totalB += n
		if remaining := counts[bg]; remaining > 0 {
			if n < remaining {
				overlap += n
			} else {
				overlap += remaining
			}
		}
	}

	return 2.0 * float64(overlap) / float64(totalA+totalB)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	if len(runes) < 2 {
		return nil
	}
	result := make(map[string]int, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		result[string(runes[i:i+2])]++
	}
	return result
}
