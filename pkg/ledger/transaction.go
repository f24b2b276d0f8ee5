package ledger

import (
	"crypto/ed25519"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
)

type Signature struct {
	PublicKey common.PublicKey
	Bytes     []byte
}

// Transaction is an ordered list of instructions signed by keypairs. The
// fee payer always signs first, so its signature identifies the transaction.
type Transaction struct {
	FeePayer        common.PublicKey
	RecentBlockhash string
	Instructions    []types.Instruction
	Signatures      []Signature
}

type NewTransactionParams struct {
	FeePayer        common.PublicKey
	RecentBlockhash string
	Instructions    []types.Instruction
	Signers         []Signer
}

type wireAccountMeta struct {
	PublicKey  [32]byte
	IsSigner   bool
	IsWritable bool
}

type wireInstruction struct {
	ProgramID [32]byte
	Accounts  []wireAccountMeta
	Data      []byte
}

type wireMessage struct {
	FeePayer        [32]byte
	RecentBlockhash string
	Instructions    []wireInstruction
}

// NewTransaction builds and signs a transaction. Only Keypair signers are
// accepted and one of them must be the fee payer.
func NewTransaction(params NewTransactionParams) (Transaction, error) {
	if len(params.Instructions) == 0 {
		return Transaction{}, ErrNoInstructions
	}

	transaction := Transaction{
		FeePayer:        params.FeePayer,
		RecentBlockhash: params.RecentBlockhash,
		Instructions:    params.Instructions,
	}
	message, err := transaction.Message()
	if err != nil {
		return Transaction{}, err
	}

	keypairs := make([]Keypair, 0, len(params.Signers))
	seen := map[common.PublicKey]bool{}
	for _, signer := range params.Signers {
		switch typed := signer.(type) {
		case Keypair:
			if seen[typed.PublicKey()] {
				continue
			}
			seen[typed.PublicKey()] = true
			keypairs = append(keypairs, typed)
		case Derived:
			return Transaction{}, ErrDerivedSignerAtTopLevel
		default:
			return Transaction{}, fmt.Errorf("unsupported signer type %T", signer)
		}
	}
	if !seen[params.FeePayer] {
		return Transaction{}, NewMissingSignatureError(params.FeePayer)
	}

	transaction.Signatures = make([]Signature, 0, len(keypairs))
	for _, keypair := range keypairs {
		signature := Signature{PublicKey: keypair.PublicKey(), Bytes: keypair.Sign(message)}
		if keypair.PublicKey() == params.FeePayer {
			transaction.Signatures = append([]Signature{signature}, transaction.Signatures...)
			continue
		}
		transaction.Signatures = append(transaction.Signatures, signature)
	}
	return transaction, nil
}

// Message returns the bytes every signature covers.
func (transaction Transaction) Message() ([]byte, error) {
	wire := wireMessage{
		FeePayer:        transaction.FeePayer,
		RecentBlockhash: transaction.RecentBlockhash,
		Instructions:    make([]wireInstruction, 0, len(transaction.Instructions)),
	}
	for _, instruction := range transaction.Instructions {
		accounts := make([]wireAccountMeta, 0, len(instruction.Accounts))
		for _, meta := range instruction.Accounts {
			accounts = append(accounts, wireAccountMeta{
				PublicKey:  meta.PubKey,
				IsSigner:   meta.IsSigner,
				IsWritable: meta.IsWritable,
			})
		}
		data := instruction.Data
		if data == nil {
			data = []byte{}
		}
		wire.Instructions = append(wire.Instructions, wireInstruction{
			ProgramID: instruction.ProgramID,
			Accounts:  accounts,
			Data:      data,
		})
	}

	encoded, err := borsh.Serialize(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction message: %w", err)
	}
	return encoded, nil
}

// ID is the base58 encoding of the fee payer's signature.
func (transaction Transaction) ID() string {
	if len(transaction.Signatures) == 0 {
		return ""
	}
	return base58.Encode(transaction.Signatures[0].Bytes)
}

// Verify checks every signature against the message and requires the fee
// payer's signature to come first.
func (transaction Transaction) Verify() error {
	if len(transaction.Instructions) == 0 {
		return ErrNoInstructions
	}
	if len(transaction.Signatures) == 0 || transaction.Signatures[0].PublicKey != transaction.FeePayer {
		return NewMissingSignatureError(transaction.FeePayer)
	}

	message, err := transaction.Message()
	if err != nil {
		return err
	}
	for _, signature := range transaction.Signatures {
		publicKey := signature.PublicKey.Bytes()
		if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature.Bytes) {
			return fmt.Errorf("%w: %s", ErrInvalidSignature, signature.PublicKey.ToBase58())
		}
	}
	return nil
}

func (transaction Transaction) signedBy() map[common.PublicKey]bool {
	signed := make(map[common.PublicKey]bool, len(transaction.Signatures))
	for _, signature := range transaction.Signatures {
		signed[signature.PublicKey] = true
	}
	return signed
}
