package pqcrypto

import (
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// randReader is the random source used for key generation.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

// Keypair represents an ML-KEM-768 keypair for key encapsulation.
type Keypair struct {
	// PublicKey is the raw ML-KEM-768 public key bytes.
	PublicKey []byte
	// SecretKey is the raw ML-KEM-768 secret key bytes.
	SecretKey []byte
}

// GenerateKeypair creates a new ML-KEM-768 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := mlkem768.GenerateKeyPair(randReader)
	if err != nil {
		return nil, err
	}

	// MarshalBinary never fails for valid keys from GenerateKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{
		PublicKey: pubBytes,
		SecretKey: privBytes,
	}, nil
}

// NewKeypairFromBytes creates a keypair from raw bytes, validating both sizes
// and that the secret key parses.
func NewKeypairFromBytes(secretKeyBytes, publicKeyBytes []byte) (*Keypair, error) {
	if err := ValidateSecretKey(secretKeyBytes); err != nil {
		return nil, err
	}
	if err := ValidatePublicKey(publicKeyBytes); err != nil {
		return nil, err
	}

	priv := &mlkem768.PrivateKey{}
	if err := priv.Unpack(secretKeyBytes); err != nil {
		return nil, err
	}

	return &Keypair{
		PublicKey: publicKeyBytes,
		SecretKey: secretKeyBytes,
	}, nil
}

// ValidatePublicKey checks that publicKey has the ML-KEM-768 public key size.
func ValidatePublicKey(publicKey []byte) error {
	if len(publicKey) != KEMPublicKeySize {
		return ErrInvalidPublicKeySize
	}
	return nil
}

// ValidateSecretKey checks that secretKey has the ML-KEM-768 secret key size.
func ValidateSecretKey(secretKey []byte) error {
	if len(secretKey) != KEMSecretKeySize {
		return ErrInvalidSecretKeySize
	}
	return nil
}

// DerivePublicKeyFromSecret extracts the public key from a secret key.
// In ML-KEM-768, the public key is embedded in the secret key.
// Returns an error if the secret key has an invalid size.
func DerivePublicKeyFromSecret(secretKey []byte) ([]byte, error) {
	if len(secretKey) != KEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	// Public key is embedded at offset 1152 in circl's ML-KEM-768 secret key format
	publicKey := make([]byte, KEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+KEMPublicKeySize])
	return publicKey, nil
}

// Encapsulate generates a fresh shared secret for the holder of publicKey
// and returns it together with the KEM ciphertext that transports it.
func Encapsulate(publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(publicKey) != KEMPublicKeySize {
		return nil, nil, ErrInvalidPublicKeySize
	}

	pub := &mlkem768.PublicKey{}
	if err := pub.Unpack(publicKey); err != nil {
		return nil, nil, err
	}

	ciphertext = make([]byte, KEMCiphertextSize)
	sharedSecret = make([]byte, KEMSharedSecretSize)
	pub.EncapsulateTo(ciphertext, sharedSecret, nil)

	return ciphertext, sharedSecret, nil
}

// Decapsulate recovers the shared secret from a KEM ciphertext using the
// secret key. A mismatched key pair does not error; it yields a different
// secret, and the authenticated layer above rejects the result.
func Decapsulate(secretKey, ciphertext []byte) ([]byte, error) {
	if len(secretKey) != KEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}
	if len(ciphertext) != KEMCiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}

	var privKey mlkem768.PrivateKey
	if err := privKey.Unpack(secretKey); err != nil {
		return nil, err
	}

	sharedSecret := make([]byte, KEMSharedSecretSize)
	privKey.DecapsulateTo(sharedSecret, ciphertext)

	return sharedSecret, nil
}

// Decapsulate decapsulates a shared secret from the KEM ciphertext.
func (k *Keypair) Decapsulate(ciphertext []byte) ([]byte, error) {
	return Decapsulate(k.SecretKey, ciphertext)
}
