package utils

import "errors"

// ErrorMalformedResponse marks a structural failure: an expected key was absent
// from an API response. Fatal for that input, never recovered into a partial table.
var ErrorMalformedResponse = errors.New("malformed api response")
