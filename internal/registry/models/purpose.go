package models

import dErrors "didregistry/pkg/domain-errors"

// KeyPurpose tags a stored public key's intended use. It is a classification
// only; nothing else in the registry enforces it.
type KeyPurpose string

const (
	PurposeAuthentication KeyPurpose = "authentication"
	PurposeSigning        KeyPurpose = "signing"
	PurposeEncryption     KeyPurpose = "encryption"
)

// purposeCodes fixes the numeric wire codes the key read path exposes.
var purposeCodes = map[KeyPurpose]int32{
	PurposeAuthentication: 1,
	PurposeSigning:        2,
	PurposeEncryption:     3,
}

// ParseKeyPurpose validates an inbound purpose string.
func ParseKeyPurpose(s string) (KeyPurpose, error) {
	p := KeyPurpose(s)
	if !p.Valid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown key purpose: "+s)
	}
	return p, nil
}

func (p KeyPurpose) Valid() bool {
	_, ok := purposeCodes[p]
	return ok
}

// Code returns the stable numeric code for the parallel-array read contract.
func (p KeyPurpose) Code() int32 {
	return purposeCodes[p]
}

func (p KeyPurpose) String() string {
	return string(p)
}
