package pqcrypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	// Check key sizes
	if len(kp.PublicKey) != KEMPublicKeySize {
		t.Errorf("PublicKey size = %d, want %d", len(kp.PublicKey), KEMPublicKeySize)
	}

	if len(kp.SecretKey) != KEMSecretKeySize {
		t.Errorf("SecretKey size = %d, want %d", len(kp.SecretKey), KEMSecretKeySize)
	}
}

func TestGenerateKeypair_Uniqueness(t *testing.T) {
	kp1, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	kp2, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	if bytes.Equal(kp1.PublicKey, kp2.PublicKey) {
		t.Error("Generated keypairs have identical public keys")
	}

	if bytes.Equal(kp1.SecretKey, kp2.SecretKey) {
		t.Error("Generated keypairs have identical secret keys")
	}
}

func TestEncapsulateDecapsulate_RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	ciphertext, sharedSecret, err := Encapsulate(kp.PublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() error = %v", err)
	}

	if len(ciphertext) != KEMCiphertextSize {
		t.Errorf("ciphertext size = %d, want %d", len(ciphertext), KEMCiphertextSize)
	}
	if len(sharedSecret) != KEMSharedSecretSize {
		t.Errorf("shared secret size = %d, want %d", len(sharedSecret), KEMSharedSecretSize)
	}

	recovered, err := kp.Decapsulate(ciphertext)
	if err != nil {
		t.Fatalf("Decapsulate() error = %v", err)
	}

	if !bytes.Equal(recovered, sharedSecret) {
		t.Error("decapsulated secret does not match encapsulated secret")
	}
}

func TestDecapsulate_ForeignSecretKey(t *testing.T) {
	alice, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	bob, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	ciphertext, sharedSecret, err := Encapsulate(alice.PublicKey)
	if err != nil {
		t.Fatalf("Encapsulate() error = %v", err)
	}

	// ML-KEM decapsulation with the wrong key does not error; it yields
	// an unrelated secret (implicit rejection).
	foreign, err := bob.Decapsulate(ciphertext)
	if err != nil {
		t.Fatalf("Decapsulate() error = %v", err)
	}

	if bytes.Equal(foreign, sharedSecret) {
		t.Error("foreign secret key recovered the shared secret")
	}
}

func TestEncapsulate_InvalidPublicKeySize(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{
		{"empty", []byte{}},
		{"too short", []byte("too short")},
		{"one byte short", make([]byte, KEMPublicKeySize-1)},
		{"one byte long", make([]byte, KEMPublicKeySize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Encapsulate(tt.key)
			if !errors.Is(err, ErrInvalidPublicKeySize) {
				t.Errorf("expected ErrInvalidPublicKeySize, got %v", err)
			}
		})
	}
}

func TestDecapsulate_InvalidSizes(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	t.Run("invalid ciphertext size", func(t *testing.T) {
		_, err := kp.Decapsulate([]byte("too short"))
		if !errors.Is(err, ErrInvalidCiphertextSize) {
			t.Errorf("expected ErrInvalidCiphertextSize, got %v", err)
		}
	})

	t.Run("ciphertext one byte short", func(t *testing.T) {
		_, err := kp.Decapsulate(make([]byte, KEMCiphertextSize-1))
		if !errors.Is(err, ErrInvalidCiphertextSize) {
			t.Errorf("expected ErrInvalidCiphertextSize, got %v", err)
		}
	})

	t.Run("invalid secret key size", func(t *testing.T) {
		_, err := Decapsulate(make([]byte, 10), make([]byte, KEMCiphertextSize))
		if !errors.Is(err, ErrInvalidSecretKeySize) {
			t.Errorf("expected ErrInvalidSecretKeySize, got %v", err)
		}
	})
}

func TestNewKeypairFromBytes(t *testing.T) {
	original, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	kp, err := NewKeypairFromBytes(original.SecretKey, original.PublicKey)
	if err != nil {
		t.Fatalf("NewKeypairFromBytes() error = %v", err)
	}

	if !bytes.Equal(kp.PublicKey, original.PublicKey) {
		t.Error("PublicKey mismatch")
	}

	if !bytes.Equal(kp.SecretKey, original.SecretKey) {
		t.Error("SecretKey mismatch")
	}
}

func TestNewKeypairFromBytes_InvalidSecretKeySize(t *testing.T) {
	_, err := NewKeypairFromBytes([]byte("short"), make([]byte, KEMPublicKeySize))
	if !errors.Is(err, ErrInvalidSecretKeySize) {
		t.Errorf("expected ErrInvalidSecretKeySize, got %v", err)
	}
}

func TestNewKeypairFromBytes_InvalidPublicKeySize(t *testing.T) {
	_, err := NewKeypairFromBytes(make([]byte, KEMSecretKeySize), []byte("short"))
	if !errors.Is(err, ErrInvalidPublicKeySize) {
		t.Errorf("expected ErrInvalidPublicKeySize, got %v", err)
	}
}

func TestDerivePublicKeyFromSecret(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	derived, err := DerivePublicKeyFromSecret(kp.SecretKey)
	if err != nil {
		t.Fatalf("DerivePublicKeyFromSecret() error = %v", err)
	}

	if !bytes.Equal(derived, kp.PublicKey) {
		t.Error("derived public key does not match original")
	}

	_, err = DerivePublicKeyFromSecret([]byte("short"))
	if !errors.Is(err, ErrInvalidSecretKeySize) {
		t.Errorf("expected ErrInvalidSecretKeySize, got %v", err)
	}
}

func TestPublicKeyOffset(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	// Verify the public key is embedded at the correct offset in secret key
	embeddedPK := kp.SecretKey[PublicKeyOffset : PublicKeyOffset+KEMPublicKeySize]
	if !bytes.Equal(embeddedPK, kp.PublicKey) {
		t.Error("Public key is not embedded at expected offset in secret key")
	}
}

func BenchmarkGenerateKeypair(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, err := GenerateKeypair()
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncapsulate(b *testing.B) {
	kp, _ := GenerateKeypair()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _, err := Encapsulate(kp.PublicKey)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecapsulate(b *testing.B) {
	kp, _ := GenerateKeypair()
	ciphertext, _, _ := Encapsulate(kp.PublicKey)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := kp.Decapsulate(ciphertext)
		if err != nil {
			b.Fatal(err)
		}
	}
}
