package vkauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Common errors
var (
	ErrMissingAuthHeader = errors.New("authorization header is missing")
	ErrWrongSign         = errors.New("wrong sign param")
	ErrBadUserID         = errors.New("vk_user_id param is not a number")
)

// paramPrefix marks the launch parameters that VK itself signed. Anything
// without the prefix is client noise and must not enter the digest.
const paramPrefix = "vk_"

// Mode selects between real signature verification and the fixed test
// identity used by dev/test stages.
type Mode int

const (
	ModeProduction Mode = iota
	ModeDevelopment
)

// Identity is a trusted VK identity extracted from verified launch params.
// UserID is kept as a string: it is an opaque identifier everywhere else.
type Identity struct {
	UserID string
	AppID  string
}

// Verifier validates signed VK Mini App launch parameters.
type Verifier struct {
	secret     []byte
	mode       Mode
	testUserID string
}

// NewVerifier creates a verifier. The mode is fixed at construction: a
// production verifier can never take the test-identity path.
func NewVerifier(secret string, mode Mode, testUserID string) *Verifier {
	return &Verifier{
		secret:     []byte(secret),
		mode:       mode,
		testUserID: testUserID,
	}
}

// Verify authenticates a raw launch-params string (the Authorization header
// content) and returns the identity it carries. It is a pure function of the
// header and the verifier's construction-time state.
func (v *Verifier) Verify(header string) (*Identity, error) {
	if v.mode != ModeProduction {
		return &Identity{UserID: v.testUserID}, nil
	}

	if header == "" {
		return nil, ErrMissingAuthHeader
	}

	params, err := url.ParseQuery(header)
	if err != nil {
		return nil, ErrMissingAuthHeader
	}

	sign := params.Get("sign")

	// Only vk_-prefixed params are covered by the signature.
	signed := url.Values{}
	for key, values := range params {
		if strings.HasPrefix(key, paramPrefix) {
			signed[key] = values
		}
	}

	// url.Values.Encode sorts keys byte-wise, which is exactly the
	// canonical order VK signs.
	digest := hmac.New(sha256.New, v.secret)
	digest.Write([]byte(signed.Encode()))
	computed := base64.StdEncoding.EncodeToString(digest.Sum(nil))
	computed = strings.ReplaceAll(computed, "+", "-")
	computed = strings.ReplaceAll(computed, "/", "_")
	computed = strings.TrimSuffix(computed, "=")

	if computed != sign {
		return nil, ErrWrongSign
	}

	userID := signed.Get("vk_user_id")
	if !isFiniteNumber(userID) {
		return nil, ErrBadUserID
	}

	return &Identity{
		UserID: userID,
		AppID:  signed.Get("vk_app_id"),
	}, nil
}

func isFiniteNumber(s string) bool {
	if s == "" {
		return false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return !math.IsInf(n, 0) && !math.IsNaN(n)
}
