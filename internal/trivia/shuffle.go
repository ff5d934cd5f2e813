package trivia

import "math/rand"

// Shuffle permutes items in place with Fisher–Yates, so every ordering is equally likely.
func Shuffle[T any](rnd *rand.Rand, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
