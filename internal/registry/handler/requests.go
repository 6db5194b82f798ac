package handler

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"didregistry/internal/registry/models"
	dErrors "didregistry/pkg/domain-errors"
)

// CreateDIDRequest is the HTTP request body for POST /dids.
type CreateDIDRequest struct {
	Subject string `json:"subject"`

	// Parsed values (populated by Validate)
	parsedSubject common.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateDIDRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Subject = strings.TrimSpace(r.Subject)
	if r.Subject == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "subject is required")
	}
	if !common.IsHexAddress(r.Subject) {
		return dErrors.New(dErrors.CodeInvalidInput, "subject must be a 20-byte hex address")
	}
	r.parsedSubject = common.HexToAddress(r.Subject)
	if r.parsedSubject == (common.Address{}) {
		return dErrors.New(dErrors.CodeInvalidInput, "subject cannot be the zero identity")
	}
	return nil
}

// ParsedSubject returns the validated subject identity.
func (r *CreateDIDRequest) ParsedSubject() common.Address {
	return r.parsedSubject
}

// SetControllerRequest is the HTTP request body for PUT /dids/{id}/controller.
type SetControllerRequest struct {
	Controller string `json:"controller"`

	parsedController common.Address
}

// Validate validates and parses the request.
func (r *SetControllerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Controller = strings.TrimSpace(r.Controller)
	if r.Controller == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "controller is required")
	}
	if !common.IsHexAddress(r.Controller) {
		return dErrors.New(dErrors.CodeInvalidInput, "controller must be a 20-byte hex address")
	}
	r.parsedController = common.HexToAddress(r.Controller)
	return nil
}

// ParsedController returns the validated controller identity.
func (r *SetControllerRequest) ParsedController() common.Address {
	return r.parsedController
}

// AddKeyRequest is the HTTP request body for POST /dids/{id}/keys.
// Coordinates travel as 0x-prefixed hex.
type AddKeyRequest struct {
	X       string `json:"x"`
	Y       string `json:"y"`
	Purpose string `json:"purpose"`
	Curve   string `json:"curve"`

	parsedKey models.Key
}

// Validate validates and parses the request.
func (r *AddKeyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	x, err := hexutil.Decode(strings.TrimSpace(r.X))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "x must be 0x-prefixed hex")
	}
	y, err := hexutil.Decode(strings.TrimSpace(r.Y))
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "y must be 0x-prefixed hex")
	}

	purpose, err := models.ParseKeyPurpose(strings.TrimSpace(r.Purpose))
	if err != nil {
		return err
	}

	key, err := models.NewKey(x, y, purpose, strings.TrimSpace(r.Curve))
	if err != nil {
		return err
	}
	r.parsedKey = key
	return nil
}

// ParsedKey returns the validated key.
func (r *AddKeyRequest) ParsedKey() models.Key {
	return r.parsedKey
}
