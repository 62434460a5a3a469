package protocol

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arena-ledger/arena-ledger/internal/domain/session"
)

// Operation defines supported replicated ledger writes.
type Operation string

const (
	OpSessionCreate  Operation = "SESSION_CREATE"
	OpSessionUpdate  Operation = "SESSION_UPDATE"
	OpDeposit        Operation = "DEPOSIT"
	OpOwnerSet       Operation = "OWNER_SET"
	OpEscrowRequest  Operation = "ESCROW_REQUEST"
	OpEscrowConfirm  Operation = "ESCROW_CONFIRM"
	OpPoolDistribute Operation = "POOL_DISTRIBUTE"
)

var validOps = map[Operation]struct{}{
	OpSessionCreate:  {},
	OpSessionUpdate:  {},
	OpDeposit:        {},
	OpOwnerSet:       {},
	OpEscrowRequest:  {},
	OpEscrowConfirm:  {},
	OpPoolDistribute: {},
}

// Tx is the signed, replicated command envelope.
type Tx struct {
	TxID      string          `json:"tx_id"`
	Nonce     string          `json:"nonce"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor"`
	Op        Operation       `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	PublicKey string          `json:"public_key"` // base64 raw ed25519 public key
	Signature string          `json:"signature"`  // base64 raw signature
}

type txSignable struct {
	TxID      string          `json:"tx_id"`
	Nonce     string          `json:"nonce"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor"`
	Op        Operation       `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	PublicKey string          `json:"public_key"`
}

// CanonicalBytes returns the deterministic signing payload.
func (t Tx) CanonicalBytes() ([]byte, error) {
	signable := txSignable{
		TxID:      strings.TrimSpace(t.TxID),
		Nonce:     strings.TrimSpace(t.Nonce),
		Timestamp: t.Timestamp.UTC(),
		Actor:     strings.TrimSpace(t.Actor),
		Op:        t.Op,
		Payload:   t.Payload,
		PublicKey: strings.TrimSpace(t.PublicKey),
	}
	return json.Marshal(signable)
}

// ValidateBasic checks required immutable tx fields.
func (t Tx) ValidateBasic() error {
	if strings.TrimSpace(t.TxID) == "" {
		return errors.New("tx_id is required")
	}
	if strings.TrimSpace(t.Nonce) == "" {
		return errors.New("nonce is required")
	}
	if strings.TrimSpace(t.Actor) == "" {
		return errors.New("actor is required")
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if _, ok := validOps[t.Op]; !ok {
		return fmt.Errorf("unsupported op: %s", t.Op)
	}
	if len(t.Payload) == 0 {
		return errors.New("payload is required")
	}
	if strings.TrimSpace(t.PublicKey) == "" {
		return errors.New("public_key is required")
	}
	if strings.TrimSpace(t.Signature) == "" {
		return errors.New("signature is required")
	}
	return nil
}

// Sign sets tx public key/signature for the given private key.
func (t *Tx) Sign(privateKey ed25519.PrivateKey) error {
	if len(privateKey) != ed25519.PrivateKeySize {
		return errors.New("invalid private key")
	}
	t.PublicKey = base64.StdEncoding.EncodeToString(privateKey.Public().(ed25519.PublicKey))
	payload, err := t.CanonicalBytes()
	if err != nil {
		return err
	}
	sig := ed25519.Sign(privateKey, payload)
	t.Signature = base64.StdEncoding.EncodeToString(sig)
	return nil
}

// Verify validates tx signature using included public key.
func (t Tx) Verify() error {
	if err := t.ValidateBasic(); err != nil {
		return err
	}
	pubRaw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(t.PublicKey))
	if err != nil {
		return fmt.Errorf("invalid public_key: %w", err)
	}
	if len(pubRaw) != ed25519.PublicKeySize {
		return errors.New("invalid public_key size")
	}
	sigRaw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(t.Signature))
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if len(sigRaw) != ed25519.SignatureSize {
		return errors.New("invalid signature size")
	}
	payload, err := t.CanonicalBytes()
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(pubRaw), payload, sigRaw) {
		return errors.New("signature verification failed")
	}
	return nil
}

// DecodePayload decodes operation payloads.
func DecodePayload[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// SessionCreatePayload registers a session. Participants and line-ups
// carry the same shape rules the ledger store enforces.
type SessionCreatePayload struct {
	VenueID      uint64           `json:"venue_id"`
	Kind         session.Kind     `json:"kind"`
	Participants []string         `json:"participants"`
	LineUps      []session.LineUp `json:"line_ups"`
}

// SessionUpdatePayload records an outcome. The resolution is carried
// pre-resolved (wallets and amounts already computed) so every node
// applies identical state without calling the identity registry.
type SessionUpdatePayload struct {
	SessionID  uint64              `json:"session_id"`
	Completed  bool                `json:"completed"`
	Resolution *session.Resolution `json:"resolution,omitempty"`
}

// DepositPayload credits a venue with an already-settled net amount.
type DepositPayload struct {
	VenueID uint64 `json:"venue_id"`
	Amount  uint64 `json:"amount"`
	Token   string `json:"token"`
}

// OwnerSetPayload registers a venue owner wallet.
type OwnerSetPayload struct {
	VenueID uint64 `json:"venue_id"`
	Owner   string `json:"owner"`
}

// EscrowRequestPayload queues the wallet's earliest pending reward.
type EscrowRequestPayload struct {
	Wallet string `json:"wallet"`
}

// EscrowConfirmPayload releases the winner's first queued entry.
type EscrowConfirmPayload struct {
	Winner string `json:"winner"`
}

// PoolDistributePayload spreads an amount evenly across funded venues.
type PoolDistributePayload struct {
	Amount uint64 `json:"amount"`
	Token  string `json:"token"`
}
