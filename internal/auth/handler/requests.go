package handler

import (
	"strings"

	id "agriproof/pkg/domain"
	dErrors "agriproof/pkg/domain-errors"
)

// TokenRequest is the HTTP request body for POST /auth/token.
type TokenRequest struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`

	parsedAddress id.Address
}

// Validate validates and parses the request.
func (r *TokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	address, err := id.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = address

	if r.Secret == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "secret is required")
	}

	return nil
}

// ParsedAddress returns the validated address.
func (r *TokenRequest) ParsedAddress() id.Address {
	return r.parsedAddress
}

// RegisterCredentialRequest is the HTTP request body for
// POST /auth/credentials.
type RegisterCredentialRequest struct {
	Address string `json:"address"`
	Secret  string `json:"secret"`

	parsedAddress id.Address
}

// Validate validates and parses the request.
func (r *RegisterCredentialRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	address, err := id.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = address

	if r.Secret == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "secret is required")
	}

	return nil
}

// ParsedAddress returns the validated address.
func (r *RegisterCredentialRequest) ParsedAddress() id.Address {
	return r.parsedAddress
}
