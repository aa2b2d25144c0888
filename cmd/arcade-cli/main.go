package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"arcadeledger/cmd/internal/passphrase"
	"arcadeledger/config"
	"arcadeledger/core/entitlement"
	"arcadeledger/crypto"
	"arcadeledger/integrations/exports"
	"arcadeledger/merkle"
	"arcadeledger/observability/logging"
	"arcadeledger/storage"
)

const passphraseEnv = "ARCADE_KEYSTORE_PASSPHRASE"

var configPath = "config.toml"

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	args = args[1:]
	switch command {
	case "generate-key":
		err = generateKey(args)
	case "root":
		err = showRoot()
	case "add":
		err = addEntitlement(args)
	case "remove":
		err = removeEntitlement(args)
	case "proof":
		err = writeProof(args)
	case "verify":
		err = verifyProof(args)
	case "export-csv":
		err = exportSnapshot(args, "csv")
	case "export-jsonl":
		err = exportSnapshot(args, "jsonl")
	case "import-seed":
		err = importSeed(args)
	case "history":
		err = showHistory()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: arcade-cli [--config path] <command> [args]

Commands:
  generate-key <keystore.json>        Generate a player wallet keystore
  root                                Print the current whitelist root
  add <address> <amount>              Insert or overwrite an entitlement
  remove <address>                    Delete an entitlement
  proof <address> [out.json]          Write an inclusion proof document
  verify <proof.json>                 Verify a proof document statelessly
  export-csv [out.csv]                Export the whitelist as CSV
  export-jsonl [out.jsonl]            Export the whitelist as JSON Lines
  import-seed <seed.yaml>             Batch-import seed allocations
  history                             Print the committed root history`)
}

func applyGlobalFlags(args []string) ([]string, error) {
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config":
			if i+1 >= len(args) {
				return nil, errors.New("--config requires a path")
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(args[i], "--config="):
			configPath = strings.TrimPrefix(args[i], "--config=")
		default:
			remaining = append(remaining, args[i])
		}
	}
	return remaining, nil
}

// proofDocument is the portable proof format handed to external verifiers.
type proofDocument struct {
	Address  string   `json:"address"`
	Amount   string   `json:"amount"`
	Leaf     string   `json:"leaf"`
	Siblings []string `json:"siblings"`
	Root     string   `json:"root"`
}

// withManager loads the config, opens the snapshot store and replays the
// latest snapshot into a fresh manager before handing both to fn.
func withManager(fn func(cfg *config.Config, store *storage.SnapshotStore, manager *entitlement.Manager) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(cfg.ServiceName, cfg.Environment, logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSize,
		MaxBackups: cfg.LogBackups,
	})

	db, err := storage.NewLevelDB(cfg.SnapshotDBPath())
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer db.Close()

	store := storage.NewSnapshotStore(db)
	manager := entitlement.NewManager()
	snapshot, err := store.LoadLatest()
	switch {
	case err == nil:
		if _, err := manager.ImportSnapshot(snapshot); err != nil {
			return fmt.Errorf("replay latest snapshot: %w", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		// first run, empty whitelist
	default:
		return err
	}
	return fn(cfg, store, manager)
}

func persist(store *storage.SnapshotStore, manager *entitlement.Manager) error {
	return store.Save(manager.ExportSnapshot())
}

func generateKey(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: generate-key <keystore.json>")
	}
	secret, err := passphrase.NewSource(passphraseEnv).Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(args[0], key, secret); err != nil {
		return err
	}
	fmt.Printf("Keystore written to %s\nAddress: %s\n", args[0], key.PubKey().AddressString())
	return nil
}

func showRoot() error {
	return withManager(func(_ *config.Config, _ *storage.SnapshotStore, manager *entitlement.Manager) error {
		fmt.Printf("Root: %s\nMembers: %d\n", manager.Root().Hex(), manager.Size())
		return nil
	})
}

func addEntitlement(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: add <address> <amount>")
	}
	amount, err := entitlement.ParseAmount(args[1])
	if err != nil {
		return err
	}
	return withManager(func(_ *config.Config, store *storage.SnapshotStore, manager *entitlement.Manager) error {
		result, err := manager.AddEntitlement(args[0], amount)
		if err != nil {
			return err
		}
		if err := persist(store, manager); err != nil {
			return err
		}
		fmt.Printf("Added %s amount %s\nRoot: %s\n", result.Address, result.Amount, result.Root.Hex())
		return nil
	})
}

func removeEntitlement(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: remove <address>")
	}
	return withManager(func(_ *config.Config, store *storage.SnapshotStore, manager *entitlement.Manager) error {
		result, err := manager.RemoveEntitlement(args[0])
		if err != nil {
			return err
		}
		if !result.Removed {
			fmt.Printf("%s was not whitelisted; root unchanged\n", result.Address)
			return nil
		}
		if err := persist(store, manager); err != nil {
			return err
		}
		fmt.Printf("Removed %s\nRoot: %s\n", result.Address, result.Root.Hex())
		return nil
	})
}

func writeProof(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: proof <address> [out.json]")
	}
	return withManager(func(_ *config.Config, _ *storage.SnapshotStore, manager *entitlement.Manager) error {
		proof, err := manager.Proof(args[0])
		if err != nil {
			return err
		}
		doc := proofDocument{
			Address:  proof.Address,
			Amount:   proof.Amount.String(),
			Leaf:     proof.Leaf.Hex(),
			Siblings: make([]string, len(proof.Siblings)),
			Root:     proof.Root.Hex(),
		}
		for i, sibling := range proof.Siblings {
			doc.Siblings[i] = sibling.Hex()
		}
		encoded, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		if len(args) >= 2 {
			if err := os.WriteFile(args[1], append(encoded, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Printf("Proof written to %s\n", args[1])
			return nil
		}
		fmt.Println(string(encoded))
		return nil
	})
}

func verifyProof(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: verify <proof.json>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var doc proofDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse proof document: %w", err)
	}
	amount, err := entitlement.ParseAmount(doc.Amount)
	if err != nil {
		return err
	}
	leaf, err := entitlement.LeafForRecord(doc.Address, amount)
	if err != nil {
		return err
	}
	if doc.Leaf != "" && leaf.Hex() != strings.ToLower(doc.Leaf) {
		return fmt.Errorf("leaf mismatch: computed %s, document says %s", leaf.Hex(), doc.Leaf)
	}
	siblings := make([]common.Hash, len(doc.Siblings))
	for i, text := range doc.Siblings {
		siblings[i] = common.HexToHash(text)
	}
	if !merkle.VerifyProof(leaf, siblings, common.HexToHash(doc.Root)) {
		return fmt.Errorf("proof does NOT verify against root %s", doc.Root)
	}
	fmt.Printf("OK: %s amount %s verifies against root %s\n", doc.Address, doc.Amount, doc.Root)
	return nil
}

func exportSnapshot(args []string, format string) error {
	return withManager(func(_ *config.Config, _ *storage.SnapshotStore, manager *entitlement.Manager) error {
		snapshot := manager.ExportSnapshot()
		var (
			data     []byte
			checksum string
			err      error
			path     = "whitelist." + format
		)
		switch format {
		case "csv":
			data, checksum, err = exports.WhitelistCSV(snapshot)
		default:
			data, checksum, err = exports.WhitelistJSONL(snapshot)
		}
		if err != nil {
			return err
		}
		if len(args) >= 1 {
			path = args[0]
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported %d records to %s\nSHA-256: %s\n", len(snapshot.Records), path, checksum)
		return nil
	})
}

func importSeed(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: import-seed <seed.yaml>")
	}
	records, err := config.LoadSeed(args[0])
	if err != nil {
		return err
	}
	return withManager(func(_ *config.Config, store *storage.SnapshotStore, manager *entitlement.Manager) error {
		result, err := manager.BatchAddEntitlements(records)
		if err != nil {
			return err
		}
		if err := persist(store, manager); err != nil {
			return err
		}
		fmt.Printf("Imported %d records (%d skipped), whitelist size %d\nRoot: %s\n",
			result.Added, result.Skipped, result.Total, result.Root.Hex())
		return nil
	})
}

func showHistory() error {
	return withManager(func(_ *config.Config, store *storage.SnapshotStore, _ *entitlement.Manager) error {
		entries, err := store.History()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No committed roots yet.")
			return nil
		}
		for _, entry := range entries {
			fmt.Printf("%s  %s\n", time.Unix(entry.Timestamp, 0).UTC().Format(time.RFC3339), entry.Root.Hex())
		}
		return nil
	})
}
