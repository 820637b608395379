package ai

import "errors"

var (
	// ErrProviderUnavailable is returned when the classification service cannot be reached
	ErrProviderUnavailable = errors.New("classification provider unavailable")

	// ErrParse is returned when the classification response is not a usable JSON array
	ErrParse = errors.New("classification response could not be parsed")

	// ErrNotPretagged is returned when the word source did not tag every word
	ErrNotPretagged = errors.New("words are not pre-tagged")
)
