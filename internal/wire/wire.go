// Package wire holds the 8-byte discriminators and borsh helpers shared by
// the registry, master and puppet programs.
package wire

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/near/borsh-go"
)

const DiscriminatorLength = 8

var ErrDiscriminatorMismatch = errors.New("wire: discriminator mismatch")

type Discriminator [DiscriminatorLength]byte

// InstructionDiscriminator is sha256("global:<name>")[:8].
func InstructionDiscriminator(name string) Discriminator {
	return discriminator("global", name)
}

// AccountDiscriminator is sha256("account:<Name>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return discriminator("account", name)
}

// EventDiscriminator is sha256("event:<Name>")[:8].
func EventDiscriminator(name string) Discriminator {
	return discriminator("event", name)
}

func discriminator(namespace string, name string) Discriminator {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var value Discriminator
	copy(value[:], sum[:DiscriminatorLength])
	return value
}

// Encode prefixes the borsh encoding of value with tag.
func Encode(tag Discriminator, value any) ([]byte, error) {
	body, err := borsh.Serialize(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %T: %w", value, err)
	}
	encoded := make([]byte, 0, DiscriminatorLength+len(body))
	encoded = append(encoded, tag[:]...)
	return append(encoded, body...), nil
}

// Decode checks tag and borsh-decodes the remainder into target.
func Decode(tag Discriminator, data []byte, target any) error {
	if len(data) < DiscriminatorLength || !bytes.Equal(data[:DiscriminatorLength], tag[:]) {
		return ErrDiscriminatorMismatch
	}
	if err := borsh.Deserialize(target, data[DiscriminatorLength:]); err != nil {
		return fmt.Errorf("failed to deserialize %T: %w", target, err)
	}
	return nil
}

// Match reports whether data starts with tag.
func Match(tag Discriminator, data []byte) bool {
	return len(data) >= DiscriminatorLength && bytes.Equal(data[:DiscriminatorLength], tag[:])
}
