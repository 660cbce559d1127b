// Command qsealctl manages a qseal vault from the shell. It is meant
// for scripting and manual testing, so it reads the vault password from
// the environment and prints results as JSON on stdout.
//
// Configuration:
//
//	QSEAL_VAULT_DIR   directory for a file-backed vault (default ~/.qseal)
//	QSEAL_VAULT_DB    path to a SQLite vault; takes precedence over the dir
//	QSEAL_PASSWORD    vault password (required by every command except status)
//	QSEAL_DEBUG       set to 1 to log vault checkpoints to stderr
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	qseal "github.com/qseal/qseal-go"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, closeStore, err := openStore()
	if err != nil {
		fatal("open store: %v", err)
	}
	defer closeStore()

	switch os.Args[1] {
	case "init":
		initVault(ctx, store)
	case "status":
		status(ctx, store)
	case "keygen":
		if len(os.Args) < 3 {
			fatal("usage: qsealctl keygen <name>")
		}
		keygen(ctx, store, os.Args[2])
	case "add-contact":
		if len(os.Args) < 4 {
			fatal("usage: qsealctl add-contact <name> <share-string>")
		}
		addContact(ctx, store, os.Args[2], os.Args[3])
	case "new-group":
		if len(os.Args) < 3 {
			fatal("usage: qsealctl new-group <name> [emoji]")
		}
		emoji := ""
		if len(os.Args) > 3 {
			emoji = os.Args[3]
		}
		newGroup(ctx, store, os.Args[2], emoji)
	case "list":
		list(ctx, store)
	case "seal":
		if len(os.Args) < 3 {
			fatal("usage: qsealctl seal <group> < plaintext")
		}
		seal(ctx, store, os.Args[2])
	case "open":
		open(ctx, store)
	case "invite":
		if len(os.Args) < 4 {
			fatal("usage: qsealctl invite <group> <contact> [message]")
		}
		message := ""
		if len(os.Args) > 4 {
			message = os.Args[4]
		}
		invite(ctx, store, os.Args[2], os.Args[3], message)
	case "accept":
		accept(ctx, store)
	case "export":
		export(ctx, store)
	case "change-password":
		changePassword(ctx, store)
	case "destroy":
		destroy(ctx, store)
	default:
		fatal("unknown command: %s", os.Args[1])
	}
}

func usage() {
	fatal(`usage: qsealctl <command> [args]

commands:
  init                              create a new vault
  status                            report whether a vault exists
  keygen <name>                     generate an identity and print its share string
  add-contact <name> <share>        store a contact from a share string
  new-group <name> [emoji]          create a group
  list                              list keys and groups
  seal <group> < plaintext          encrypt stdin for a group
  open < message                    decrypt a message from stdin
  invite <group> <contact> [msg]    print an invitation for a contact
  accept < invitation               accept an invitation from stdin
  export                            print an encrypted vault export (QSEAL_EXPORT_PASSWORD)
  change-password                   rotate to QSEAL_NEW_PASSWORD
  destroy                           delete the vault`)
}

func openStore() (qseal.Store, func(), error) {
	if path := os.Getenv("QSEAL_VAULT_DB"); path != "" {
		st, err := qseal.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	}

	dir := os.Getenv("QSEAL_VAULT_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".qseal")
	}
	st, err := qseal.NewFileStore(dir)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {}, nil
}

func vaultStore(store qseal.Store) *qseal.VaultStore {
	var opts []qseal.StoreOption
	if os.Getenv("QSEAL_DEBUG") == "1" {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		opts = append(opts, qseal.WithObserver(qseal.ZerologObserver{Logger: logger}))
	}
	return qseal.NewVaultStore(store, opts...)
}

func password() string {
	pw := os.Getenv("QSEAL_PASSWORD")
	if pw == "" {
		fatal("QSEAL_PASSWORD is not set")
	}
	return pw
}

// withKeyring unlocks the vault, runs fn against the keyring, and saves
// the keyring back when fn reports it changed something.
func withKeyring(ctx context.Context, store qseal.Store, fn func(*qseal.Keyring) (changed bool, err error)) {
	vs := vaultStore(store)
	pw := password()

	res, err := vs.Unlock(ctx, pw)
	if err != nil {
		fatal("unlock vault: %v", err)
	}
	defer res.Keyring.Wipe()

	changed, err := fn(res.Keyring)
	if err != nil {
		fatal("%v", err)
	}
	if changed {
		if err := vs.Save(ctx, res.Keyring, pw); err != nil {
			fatal("save vault: %v", err)
		}
	}
}

func initVault(ctx context.Context, store qseal.Store) {
	vs := vaultStore(store)
	keyring, err := vs.Create(ctx, password())
	if err != nil {
		fatal("create vault: %v", err)
	}
	defer keyring.Wipe()
	printJSON(map[string]bool{"created": true})
}

func status(ctx context.Context, store qseal.Store) {
	st, err := vaultStore(store).Status(ctx)
	if err != nil {
		fatal("vault status: %v", err)
	}
	printJSON(st)
}

type keyOutput struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Fingerprint      string `json:"fingerprint"`
	ShortFingerprint string `json:"shortFingerprint"`
	Share            string `json:"share,omitempty"`
}

type groupOutput struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Emoji            string `json:"emoji,omitempty"`
	Fingerprint      string `json:"fingerprint"`
	ShortFingerprint string `json:"shortFingerprint"`
}

func keygen(ctx context.Context, store qseal.Store, name string) {
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		key, err := qseal.GeneratePersonalKey(name)
		if err != nil {
			return false, fmt.Errorf("generate key: %w", err)
		}
		if err := kr.AddKey(key); err != nil {
			return false, fmt.Errorf("add key: %w", err)
		}
		printJSON(keyOutput{
			ID:               key.ID,
			Name:             key.Name,
			Kind:             "personal",
			Fingerprint:      key.Fingerprint,
			ShortFingerprint: key.ShortFingerprint,
			Share:            key.ShareString(),
		})
		return true, nil
	})
}

func addContact(ctx context.Context, store qseal.Store, name, share string) {
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		contact, err := qseal.NewContactKeyFromShare(name, share)
		if err != nil {
			return false, fmt.Errorf("parse share string: %w", err)
		}
		if err := kr.AddKey(contact); err != nil {
			return false, fmt.Errorf("add contact: %w", err)
		}
		printJSON(keyOutput{
			ID:               contact.ID,
			Name:             contact.Name,
			Kind:             "contact",
			Fingerprint:      contact.Fingerprint,
			ShortFingerprint: contact.ShortFingerprint,
		})
		return true, nil
	})
}

func newGroup(ctx context.Context, store qseal.Store, name, emoji string) {
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		group, err := qseal.NewGroup(name)
		if err != nil {
			return false, fmt.Errorf("create group: %w", err)
		}
		group.Emoji = emoji
		if err := kr.AddGroup(group); err != nil {
			return false, fmt.Errorf("add group: %w", err)
		}
		printJSON(groupOutput{
			ID:               group.ID,
			Name:             group.Name,
			Emoji:            group.Emoji,
			Fingerprint:      group.Fingerprint,
			ShortFingerprint: group.ShortFingerprint,
		})
		return true, nil
	})
}

func list(ctx context.Context, store qseal.Store) {
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		out := struct {
			Keys   []keyOutput   `json:"keys"`
			Groups []groupOutput `json:"groups"`
		}{
			Keys:   make([]keyOutput, 0, kr.CountKeys()),
			Groups: make([]groupOutput, 0, kr.CountGroups()),
		}
		for _, k := range kr.PersonalKeys() {
			out.Keys = append(out.Keys, keyOutput{
				ID: k.ID, Name: k.Name, Kind: "personal",
				Fingerprint: k.Fingerprint, ShortFingerprint: k.ShortFingerprint,
			})
		}
		for _, k := range kr.ContactKeys() {
			out.Keys = append(out.Keys, keyOutput{
				ID: k.ID, Name: k.Name, Kind: "contact",
				Fingerprint: k.Fingerprint, ShortFingerprint: k.ShortFingerprint,
			})
		}
		for _, g := range kr.Groups() {
			out.Groups = append(out.Groups, groupOutput{
				ID: g.ID, Name: g.Name, Emoji: g.Emoji,
				Fingerprint: g.Fingerprint, ShortFingerprint: g.ShortFingerprint,
			})
		}
		printJSON(out)
		return false, nil
	})
}

// findGroup resolves a group by id, short fingerprint, or name.
func findGroup(kr *qseal.Keyring, ref string) (*qseal.Group, error) {
	if g, ok := kr.GroupByID(ref); ok {
		return g, nil
	}
	if g, ok := kr.GroupByShortFingerprint(ref); ok {
		return g, nil
	}
	for _, g := range kr.Groups() {
		if g.Name == ref {
			return g, nil
		}
	}
	return nil, fmt.Errorf("no group matches %q", ref)
}

// findContact resolves a contact by id, short fingerprint, or name.
func findContact(kr *qseal.Keyring, ref string) (*qseal.ContactKey, error) {
	for _, c := range kr.ContactKeys() {
		if c.ID == ref || c.ShortFingerprint == ref || c.Name == ref {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no contact matches %q", ref)
}

func seal(ctx context.Context, store qseal.Store, groupRef string) {
	plaintext := readStdin()
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		group, err := findGroup(kr, groupRef)
		if err != nil {
			return false, err
		}
		wire, err := qseal.EncryptMessage(group, strings.TrimRight(plaintext, "\n"))
		if err != nil {
			return false, fmt.Errorf("encrypt: %w", err)
		}
		fmt.Println(wire)
		return false, nil
	})
}

func open(ctx context.Context, store qseal.Store) {
	wire := strings.TrimSpace(readStdin())
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		msg, err := kr.DecryptMessage(wire)
		if err != nil {
			return false, fmt.Errorf("decrypt: %w", err)
		}
		printJSON(struct {
			Group     string `json:"group"`
			GroupID   string `json:"groupId"`
			Plaintext string `json:"plaintext"`
		}{Group: msg.Group.Name, GroupID: msg.Group.ID, Plaintext: msg.Plaintext})
		return false, nil
	})
}

func invite(ctx context.Context, store qseal.Store, groupRef, contactRef, message string) {
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		group, err := findGroup(kr, groupRef)
		if err != nil {
			return false, err
		}
		contact, err := findContact(kr, contactRef)
		if err != nil {
			return false, err
		}
		personals := kr.PersonalKeys()
		if len(personals) == 0 {
			return false, fmt.Errorf("no identity in vault; run keygen first")
		}
		wire, err := qseal.NewInvitation(contact, group, personals[0], message)
		if err != nil {
			return false, fmt.Errorf("create invitation: %w", err)
		}
		fmt.Println(wire)
		return false, nil
	})
}

func accept(ctx context.Context, store qseal.Store) {
	wire := strings.TrimSpace(readStdin())
	withKeyring(ctx, store, func(kr *qseal.Keyring) (bool, error) {
		inv, err := qseal.ParseInvitation(wire)
		if err != nil {
			return false, fmt.Errorf("parse invitation: %w", err)
		}
		var identity *qseal.PersonalKey
		for _, p := range kr.PersonalKeys() {
			if p.ShortFingerprint == inv.RecipientFingerprint {
				identity = p
				break
			}
		}
		if identity == nil {
			return false, fmt.Errorf("no identity matches recipient %s", inv.RecipientFingerprint)
		}
		accepted, err := inv.Accept(identity)
		if err != nil {
			return false, fmt.Errorf("accept invitation: %w", err)
		}
		if err := kr.AddGroup(accepted.Group); err != nil {
			return false, fmt.Errorf("store group: %w", err)
		}
		printJSON(struct {
			Group   groupOutput `json:"group"`
			Inviter string      `json:"inviter"`
			Message string      `json:"message,omitempty"`
		}{
			Group: groupOutput{
				ID: accepted.Group.ID, Name: accepted.Group.Name, Emoji: accepted.Group.Emoji,
				Fingerprint: accepted.Group.Fingerprint, ShortFingerprint: accepted.Group.ShortFingerprint,
			},
			Inviter: accepted.InviterFingerprint,
			Message: accepted.Message,
		})
		return true, nil
	})
}

func export(ctx context.Context, store qseal.Store) {
	exportPw := os.Getenv("QSEAL_EXPORT_PASSWORD")
	if exportPw == "" {
		var err error
		exportPw, err = qseal.GenerateExportPassword()
		if err != nil {
			fatal("generate export password: %v", err)
		}
		fmt.Fprintf(os.Stderr, "export password: %s\n", exportPw)
	}

	data, err := vaultStore(store).Export(ctx, password(), exportPw)
	if err != nil {
		fatal("export vault: %v", err)
	}
	os.Stdout.Write(data)
	fmt.Println()
}

func changePassword(ctx context.Context, store qseal.Store) {
	newPw := os.Getenv("QSEAL_NEW_PASSWORD")
	if newPw == "" {
		fatal("QSEAL_NEW_PASSWORD is not set")
	}
	if err := vaultStore(store).ChangePassword(ctx, password(), newPw); err != nil {
		fatal("change password: %v", err)
	}
	printJSON(map[string]bool{"changed": true})
}

func destroy(ctx context.Context, store qseal.Store) {
	if err := vaultStore(store).Destroy(ctx); err != nil {
		fatal("destroy vault: %v", err)
	}
	printJSON(map[string]bool{"destroyed": true})
}

func readStdin() string {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fatal("read stdin: %v", err)
	}
	return string(data)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode output: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
