package engine

// Charged is anything with a battery level
type Charged interface {
	Battery() int
}

// MoreCharged reports whether a has strictly more battery than b
func MoreCharged(a, b Charged) bool {
	return a.Battery() > b.Battery()
}

// Healthier returns whichever of a and b has more battery, preferring b on a tie
func Healthier[T Charged](a, b T) T {
	if MoreCharged(a, b) {
		return a
	}
	return b
}
