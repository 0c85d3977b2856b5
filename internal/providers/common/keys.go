/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package common

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const keyBits = 2048

// SSHKey is locally generated or parsed SSH key material
type SSHKey struct {
	// PublicKey is in authorized_keys format without a trailing newline
	PublicKey string
	// PrivateKey is the PEM encoded private key, empty for imported keys
	PrivateKey string
	// Fingerprint is the SHA256 fingerprint of the public key
	Fingerprint string
}

// GenerateSSHKey creates an RSA key pair for vendors that only accept
// public keys
func GenerateSSHKey() (*SSHKey, error) {
	private, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, contracts.NewProviderInternalError("failed to generate key pair", err)
	}
	public, err := ssh.NewPublicKey(&private.PublicKey)
	if err != nil {
		return nil, contracts.NewProviderInternalError("failed to encode public key", err)
	}
	block, err := ssh.MarshalPrivateKey(private, "")
	if err != nil {
		return nil, contracts.NewProviderInternalError("failed to encode private key", err)
	}
	return &SSHKey{
		PublicKey:   strings.TrimSpace(string(ssh.MarshalAuthorizedKey(public))),
		PrivateKey:  string(pem.EncodeToMemory(block)),
		Fingerprint: ssh.FingerprintSHA256(public),
	}, nil
}

// ParseSSHPublicKey validates an authorized_keys line
func ParseSSHPublicKey(publicKey string) (*SSHKey, error) {
	public, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return nil, contracts.NewInvalidValueError("invalid SSH public key", err)
	}
	return &SSHKey{
		PublicKey:   strings.TrimSpace(string(ssh.MarshalAuthorizedKey(public))),
		Fingerprint: ssh.FingerprintSHA256(public),
	}, nil
}

// KeyPairMaterial resolves the key material of a CreateKeyPairRequest,
// generating a key when no public key was supplied
func KeyPairMaterial(req contracts.CreateKeyPairRequest) (*SSHKey, error) {
	if req.PublicKey == "" {
		return GenerateSSHKey()
	}
	return ParseSSHPublicKey(req.PublicKey)
}
