// Package pqcrypto provides the cryptographic primitives for the QSeal
// protocol: post-quantum key encapsulation, authenticated encryption,
// password-based key derivation, and content fingerprints.
//
// # Algorithm Suite
//
// The package uses the following cryptographic algorithms:
//
//   - ML-KEM-768 (NIST FIPS 203): Post-quantum key encapsulation mechanism
//     for sealing group keys to a contact's public key. Provides 192-bit
//     classical and quantum security levels.
//
//   - AES-256-GCM: Authenticated encryption for vault payloads, messages,
//     and invitation payloads. Provides confidentiality and integrity.
//
//   - PBKDF2 (RFC 8018): Deliberately slow derivation of the vault
//     encryption key and the password verifier from the master password.
//     The two run over different hash families and domain-separated salts.
//
//   - HKDF-SHA-512 (RFC 5869): Expansion of KEM shared secrets into AEAD
//     keys with domain separation.
//
// # Security Notes
//
// AES-GCM IVs MUST be unique for each encryption with the same key. IV
// reuse completely breaks the security of AES-GCM. [Encrypt] generates a
// fresh random IV on every call and there is no way to supply one.
//
// The KEM shared secret is never used as an AEAD key directly; it passes
// through [InvitationWrapKey] first.
//
// # Key Management
//
// Use [GenerateKeypair] to create a new ML-KEM-768 keypair. The secret key
// contains an embedded copy of the public key at offset 1152, which can be
// extracted with [DerivePublicKeyFromSecret].
//
// Keep secret keys secure. They should never be logged, transmitted in
// plaintext, or stored in version control.
package pqcrypto
