package fsrs

import "fmt"

// DefaultWeights are the FSRS-5 default model weights.
var DefaultWeights = [19]float64{
	0.40255, 1.18385, 3.173, 15.69105, // w[0..3]   initial stability per rating
	7.1949, 0.5345, 1.4604, 0.0046, // w[4..7]   difficulty
	1.54575, 0.1192, 1.01925, // w[8..10]  recall stability
	1.9395, 0.11, 0.29605, 2.2698, // w[11..14] forget stability
	0.2315, 2.9898, // w[15..16] hard penalty, easy bonus
	0.51655, 0.6621, // w[17..18] same-day stability
}

var lowerBounds = [19]float64{
	0.01, 0.01, 0.01, 0.01,
	1, 0.001, 0.001, 0.001,
	0, 0, 0.001,
	0.001, 0.001, 0.001, 0,
	0, 1,
	0, 0,
}

var upperBounds = [19]float64{
	100, 100, 100, 100,
	10, 4, 4, 0.75,
	4.5, 0.8, 3.5,
	5, 0.25, 0.9, 4,
	1, 6,
	2, 2,
}

// ValidateWeights checks every weight against its allowed range.
func ValidateWeights(w [19]float64) error {
	for i := range w {
		if w[i] < lowerBounds[i] || w[i] > upperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidWeights, i, w[i], lowerBounds[i], upperBounds[i])
		}
	}
	return nil
}
