// Package fairness implements the deterministic verifiable-randomness
// protocol that selects a draw winner. The operator commits to a secret
// before any ticket can become eligible; the winner is derived from the
// secret combined with a public blockchain anchor fetched after sales close.
// Every function here is pure and safe for concurrent use.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/models"
)

// SecretLength is the byte length of a generated server secret.
const SecretLength = 32

// GenerateSecret returns a cryptographically secure random secret,
// hex-encoded.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Commit returns the SHA-256 commitment hash of a secret, hex-encoded. The
// hash is published when the draw is created, binding the operator to the
// secret before any ticket is sold.
func Commit(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// ComputeWinner derives the winner index for totalTickets tickets from the
// secret and the anchor. The concatenation order secret||anchor is part of
// the protocol contract. The combined hash is interpreted as an unsigned
// big integer and reduced modulo the ticket count, so the index is always in
// [0, totalTickets) regardless of magnitude.
func ComputeWinner(secret, anchor string, totalTickets int) (*models.FairnessProof, error) {
	if totalTickets < 1 {
		return nil, fmt.Errorf("total tickets must be positive, got %d", totalTickets)
	}

	commitment := Commit(secret)
	steps := []string{
		"Server secret: " + secret,
		"Server secret hash: " + commitment,
		"Blockchain anchor: " + anchor,
		fmt.Sprintf("Total tickets: %d", totalTickets),
	}

	combined := secret + anchor
	steps = append(steps, "Combined input: "+combined)

	sum := sha256.Sum256([]byte(combined))
	combinedHash := hex.EncodeToString(sum[:])
	steps = append(steps, "Combined hash: "+combinedHash)

	hashInt := new(big.Int).SetBytes(sum[:])
	steps = append(steps, "Hash as number: "+hashInt.String())

	winnerIndex := int(new(big.Int).Mod(hashInt, big.NewInt(int64(totalTickets))).Int64())
	steps = append(steps, fmt.Sprintf("Winner index: %d (hash %% %d)", winnerIndex, totalTickets))

	return &models.FairnessProof{
		Secret:            secret,
		CommitmentHash:    commitment,
		Anchor:            anchor,
		CombinedHash:      combinedHash,
		WinnerIndex:       winnerIndex,
		TotalTickets:      totalTickets,
		Timestamp:         time.Now().UTC(),
		VerificationSteps: steps,
	}, nil
}

// Verify recomputes a proof from its inputs and checks the commitment,
// combined hash and winner index against the stored values. A mismatch is a
// valid "not verified" result, never an error.
func Verify(proof *models.FairnessProof) bool {
	if proof == nil || proof.TotalTickets < 1 {
		return false
	}
	if Commit(proof.Secret) != proof.CommitmentHash {
		return false
	}
	recomputed, err := ComputeWinner(proof.Secret, proof.Anchor, proof.TotalTickets)
	if err != nil {
		return false
	}
	return recomputed.WinnerIndex == proof.WinnerIndex &&
		recomputed.CombinedHash == proof.CombinedHash
}
