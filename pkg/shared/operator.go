package shared

import (
	"bufio"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/mr-tron/base58"
)

type PayerConfig struct {
	PrivateKey string
	Network    string
	RPCURL     string
}

const publicKeyLength = 32

var dotenvLoadOnce sync.Once

// PayerConfigFromEnv reads the fee payer key and cluster from the
// environment, loading the nearest .env file first. Cluster scoped keys such
// as DEVNET_DTM_PAYER_KEY win over the generic ones.
func PayerConfigFromEnv() (PayerConfig, error) {
	loadDotEnvIfPresent()

	network, err := NormalizeNetwork(firstNonEmptyEnv("DTM_NETWORK", "SOLANA_NETWORK", "NETWORK"))
	if err != nil {
		return PayerConfig{}, err
	}

	privateKey := firstNonEmptyEnv("DTM_PAYER_KEY", "SOLANA_PRIVATE_KEY", "PAYER_PRIVATE_KEY")
	scope := strings.ToUpper(strings.ReplaceAll(network, "-", "_"))
	if scopedKey := firstNonEmptyEnv(
		scope+"_DTM_PAYER_KEY",
		scope+"_SOLANA_PRIVATE_KEY",
	); scopedKey != "" {
		privateKey = scopedKey
	}
	if privateKey == "" {
		if keypairFile := firstNonEmptyEnv("DTM_PAYER_KEYPAIR_FILE", "SOLANA_KEYPAIR"); keypairFile != "" {
			contents, readErr := os.ReadFile(keypairFile)
			if readErr != nil {
				return PayerConfig{}, fmt.Errorf("failed to read keypair file: %w", readErr)
			}
			privateKey = strings.TrimSpace(string(contents))
		}
	}
	if privateKey == "" {
		return PayerConfig{}, fmt.Errorf("DTM_PAYER_KEY is required")
	}

	rpcURL := firstNonEmptyEnv("DTM_RPC_URL", "SOLANA_RPC_URL")
	if rpcURL == "" {
		rpcURL, _ = RPCEndpoint(network)
	}

	return PayerConfig{
		PrivateKey: privateKey,
		Network:    network,
		RPCURL:     rpcURL,
	}, nil
}

func loadDotEnvIfPresent() {
	dotenvLoadOnce.Do(func() {
		startPaths := make([]string, 0, 2)

		if cwd, err := os.Getwd(); err == nil {
			startPaths = append(startPaths, cwd)
		}
		if _, currentFile, _, ok := runtime.Caller(0); ok {
			startPaths = append(startPaths, filepath.Dir(currentFile))
		}

		seenCandidates := make(map[string]struct{})
		for _, start := range startPaths {
			current := start
			for {
				candidate := filepath.Join(current, ".env")
				if _, exists := seenCandidates[candidate]; !exists {
					seenCandidates[candidate] = struct{}{}
					if _, statErr := os.Stat(candidate); statErr == nil {
						loadDotEnvFile(candidate)
						return
					}
				}

				parent := filepath.Dir(current)
				if parent == current {
					break
				}
				current = parent
			}
		}
	})
}

func loadDotEnvFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	loadedAny := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		separator := strings.Index(line, "=")
		if separator <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:separator])
		if !isValidEnvKey(key) {
			continue
		}
		if _, alreadySet := os.LookupEnv(key); alreadySet {
			continue
		}

		value := strings.TrimSpace(line[separator+1:])
		if len(value) >= 2 {
			first := value[0]
			last := value[len(value)-1]
			if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if setErr := os.Setenv(key, value); setErr == nil {
			loadedAny = true
		}
	}

	return loadedAny
}

func isValidEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for index, character := range key {
		if (character >= 'A' && character <= 'Z') ||
			(character >= 'a' && character <= 'z') ||
			(index > 0 && character >= '0' && character <= '9') ||
			character == '_' {
			continue
		}
		return false
	}
	return true
}

func firstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

// ParseKeypair parses an Ed25519 keypair. Accepted forms are a solana-keygen
// JSON byte array, base58 of the 64 byte secret key, hex of a 32 byte seed or
// 64 byte secret key, and a DER or raw Hedera Ed25519 private key string.
func ParseKeypair(raw string) (types.Account, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return types.Account{}, fmt.Errorf("private key cannot be empty")
	}

	if strings.HasPrefix(candidate, "[") {
		var values []int
		if err := json.Unmarshal([]byte(candidate), &values); err != nil {
			return types.Account{}, fmt.Errorf("failed to parse keypair JSON: %w", err)
		}
		keyBytes := make([]byte, len(values))
		for index, value := range values {
			if value < 0 || value > 255 {
				return types.Account{}, fmt.Errorf("keypair byte %d out of range: %d", index, value)
			}
			keyBytes[index] = byte(value)
		}
		return accountFromKeyBytes(keyBytes)
	}

	hexCandidate := strings.TrimPrefix(candidate, "0x")
	if decoded, err := hex.DecodeString(hexCandidate); err == nil {
		if len(decoded) == ed25519.SeedSize || len(decoded) == ed25519.PrivateKeySize {
			return accountFromKeyBytes(decoded)
		}
	}

	if decoded, err := base58.Decode(candidate); err == nil && len(decoded) == ed25519.PrivateKeySize {
		return accountFromKeyBytes(decoded)
	}

	hederaKey, hederaErr := hedera.PrivateKeyFromStringEd25519(candidate)
	if hederaErr == nil {
		return accountFromKeyBytes(hederaKey.BytesRaw())
	}

	return types.Account{}, fmt.Errorf(
		"failed to parse private key as keypair JSON, hex, base58, or Hedera ED25519 (%v)",
		hederaErr,
	)
}

// LoadKeypairFile reads a keypair file in any form ParseKeypair accepts.
func LoadKeypairFile(path string) (types.Account, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to read keypair file: %w", err)
	}
	return ParseKeypair(string(contents))
}

// ParsePublicKey decodes a base58 address and rejects anything that is not
// exactly 32 bytes.
func ParsePublicKey(raw string) (common.PublicKey, error) {
	decoded, err := base58.Decode(strings.TrimSpace(raw))
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("invalid base58 public key %q: %w", raw, err)
	}
	if len(decoded) != publicKeyLength {
		return common.PublicKey{}, fmt.Errorf("public key %q must be %d bytes, got %d", raw, publicKeyLength, len(decoded))
	}
	return common.PublicKeyFromBytes(decoded), nil
}

func accountFromKeyBytes(keyBytes []byte) (types.Account, error) {
	switch len(keyBytes) {
	case ed25519.SeedSize:
		keyBytes = ed25519.NewKeyFromSeed(keyBytes)
	case ed25519.PrivateKeySize:
		derived := ed25519.NewKeyFromSeed(keyBytes[:ed25519.SeedSize])
		if string(derived[ed25519.SeedSize:]) != string(keyBytes[ed25519.SeedSize:]) {
			return types.Account{}, fmt.Errorf("keypair public half does not match its seed")
		}
	default:
		return types.Account{}, fmt.Errorf("keypair must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(keyBytes))
	}
	return types.AccountFromBytes(keyBytes)
}
