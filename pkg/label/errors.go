package label

import "errors"

// ErrUndecodableImage is returned when the input image cannot be used at all.
// Every other extraction anomaly degrades confidence instead of erroring.
var ErrUndecodableImage = errors.New("undecodable label image")
