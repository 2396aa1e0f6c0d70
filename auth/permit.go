package auth

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidSignature is returned when a permit signature is malformed
	// or does not recover to any key.
	ErrInvalidSignature = errors.New("invalid permit signature")
)

// permitPrefix domain-separates position permits from any other payload an
// owner key might sign.
var permitPrefix = []byte("position-ledger/permit/v1")

// PermitDigest is the message a position owner signs to delegate operator
// rights: keccak256(prefix || positionID || operator || nonce || deadline).
// Binding the position's current nonce into the digest is what makes each
// permit single-use.
func PermitDigest(positionID uint64, operator common.Address, nonce, deadline uint64) common.Hash {
	buf := make([]byte, 0, len(permitPrefix)+3*8+common.AddressLength)
	buf = append(buf, permitPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, positionID)
	buf = append(buf, operator.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	buf = binary.BigEndian.AppendUint64(buf, deadline)
	return crypto.Keccak256Hash(buf)
}

// VerifyPermit checks that sig is the owner's signature over the permit
// digest for the position's current nonce, and consumes that nonce on
// success. A consumed nonce never satisfies a later check, so a permit
// cannot be replayed.
func (g *Guard) VerifyPermit(positionID uint64, operator common.Address, deadline uint64, sig []byte) error {
	pos, err := g.ledger.Get(positionID)
	if err != nil {
		return err
	}
	owner, err := g.owners.OwnerOf(positionID)
	if err != nil {
		return fmt.Errorf("guard: resolve owner of %d: %w", positionID, err)
	}

	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: %d byte signature", ErrInvalidSignature, len(sig))
	}
	// Accept both the raw 0/1 recovery id and the Ethereum 27/28 form.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	digest := PermitDigest(positionID, operator, pos.Nonce, deadline)
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != owner {
		return fmt.Errorf("%w: permit signer is not the owner of position %d", ErrUnauthorized, positionID)
	}

	if _, err := g.ledger.ConsumeNonce(positionID); err != nil {
		return err
	}
	return nil
}
