package pqcrypto

const (
	// InvitationContext is the context string used in HKDF key derivation
	// for invitation wrapping keys.
	InvitationContext = "qseal:invite:v1"

	// verifyDomain is appended to the vault salt when deriving the password
	// verifier, keeping it off the encryption key's derivation path.
	verifyDomain = "qseal:verify:v1"

	// KEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	KEMPublicKeySize = 1184
	// KEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	KEMSecretKeySize = 2400
	// KEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	KEMCiphertextSize = 1088
	// KEMSharedSecretSize is the size of the shared secret from ML-KEM-768 in bytes.
	KEMSharedSecretSize = 32

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESIVSize is the size of an AES-GCM IV in bytes.
	AESIVSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// GroupKeySize is the size of a symmetric group key in bytes.
	GroupKeySize = 32

	// SaltSize is the size of a password salt in bytes.
	SaltSize = 16

	// VerifierSize is the size of the stored password verifier in bytes.
	VerifierSize = 32

	// DefaultKDFIterations is the PBKDF2 iteration count used when the
	// caller does not pin one. Persisted vaults record the count they
	// were created with.
	DefaultKDFIterations = 310_000

	// FingerprintSize is the size of a content fingerprint in bytes.
	FingerprintSize = 16
	// ShortFingerprintSize is the number of fingerprint bytes in the
	// abbreviated renderings.
	ShortFingerprintSize = 4

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-768 secret key.
	PublicKeyOffset = 1152
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "ML-KEM-768:AES-256-GCM:PBKDF2-SHA-256:HKDF-SHA-512"
