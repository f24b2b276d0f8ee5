package dtm

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	"github.com/dapp-token-manager/token-manager-sdk-go/internal/wire"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/ledger"
	"github.com/dapp-token-manager/token-manager-sdk-go/pkg/pda"
)

// Data encodes the record as stored on the ledger.
func (record Record) Data() ([]byte, error) {
	data, err := wire.Encode(recordDiscriminator, record)
	if err != nil {
		return nil, err
	}
	if len(data) != RecordSize {
		return nil, fmt.Errorf("encoded record is %d bytes, want %d", len(data), RecordSize)
	}
	return data, nil
}

// RecordFromData decodes a stored record.
func RecordFromData(data []byte) (Record, error) {
	if len(data) != RecordSize {
		return Record{}, fmt.Errorf("%w: record is %d bytes, want %d", ledger.ErrInvalidAccountData, len(data), RecordSize)
	}
	var record Record
	if err := wire.Decode(recordDiscriminator, data, &record); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ledger.ErrInvalidAccountData, err)
	}
	return record, nil
}

// ManagerSeeds returns the seeds of the record for asset and authority,
// without the bump.
func ManagerSeeds(asset common.PublicKey, authority common.PublicKey) [][]byte {
	return [][]byte{[]byte(SeedPrefix), asset.Bytes(), authority.Bytes()}
}

// FindManagerAddress derives the record address and bump.
func FindManagerAddress(programID common.PublicKey, asset common.PublicKey, authority common.PublicKey) (common.PublicKey, uint8, error) {
	return pda.FindAddress(ManagerSeeds(asset, authority), programID)
}

// Address re-derives the record's own address from its stored bump.
func (record Record) Address(programID common.PublicKey) (common.PublicKey, error) {
	return pda.CreateAddress(pda.WithBump(ManagerSeeds(record.Asset, record.Authority), record.Bump), programID)
}

// Signer is the keyless signer the registry presents for the record.
func (record Record) Signer() ledger.Derived {
	return ledger.NewDerived(record.Bump, ManagerSeeds(record.Asset, record.Authority)...)
}

func DecodeManagerCreated(data []byte) (ManagerCreatedEvent, error) {
	var event ManagerCreatedEvent
	err := wire.Decode(managerCreatedDiscriminator, data, &event)
	return event, err
}

func DecodeSupplyIssued(data []byte) (SupplyIssuedEvent, error) {
	var event SupplyIssuedEvent
	err := wire.Decode(supplyIssuedDiscriminator, data, &event)
	return event, err
}
