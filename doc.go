// Package qseal implements an encrypted key vault for post-quantum
// group messaging.
//
// Identities are ML-KEM-768 keypairs; groups are shared AES-256-GCM
// keys. Messages, group invitations and public key shares all travel as
// compact single-line strings that survive any copy-paste channel, and
// the whole keyring persists encrypted under a master password in a
// pluggable record store.
//
// Basic usage:
//
//	store := qseal.NewVaultStore(qseal.NewMemoryStore())
//	keyring, err := store.Create(ctx, masterPassword)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	me, err := qseal.GeneratePersonalKey("me")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	keyring.AddKey(me)
//
//	group, err := qseal.NewGroup("family")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	keyring.AddGroup(group)
//
//	wire, err := qseal.EncryptMessage(group, "hello")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := store.Save(ctx, keyring, masterPassword); err != nil {
//	    log.Fatal(err)
//	}
//
// To keep a vault open across many operations without re-entering the
// password, wrap the store in a Session; it caches the password in a
// memguard enclave and locks itself after an idle timeout.
package qseal
