package token

import "errors"

var (
	// ErrInvalidToken is returned when a token fails signature or structural checks
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed
	ErrExpiredToken = errors.New("token has expired")

	// ErrTokenPayload is returned when a verified token is missing a required claim
	ErrTokenPayload = errors.New("invalid token payload")

	// ErrTokenGeneration is returned when signing fails
	ErrTokenGeneration = errors.New("failed to generate token")
)
