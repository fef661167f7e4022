package utils

import "math"

// Round2 rounds a price to 2 decimal places. Service prices and payment
// amounts are stored with cent precision.
func Round2(price float64) float64 {
	return math.Round(price*100) / 100
}
