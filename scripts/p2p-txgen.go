// Command p2p-txgen emits one signed ledger transaction as JSON on
// stdout, ready to POST to a node's /v1/p2p/tx endpoint.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arena-ledger/arena-ledger/internal/domain/session"
	"github.com/arena-ledger/arena-ledger/internal/infrastructure/keystore"
	"github.com/arena-ledger/arena-ledger/internal/p2p/protocol"
)

type options struct {
	op         string
	actor      string
	txID       string
	nonce      string
	timestamp  string
	privateKey string
	keyID      string

	venueID      uint64
	kind         string
	participants string
	lineUpsJSON  string

	sessionID      uint64
	completed      bool
	resolutionJSON string

	amount uint64
	token  string

	owner  string
	wallet string
	winner string
}

func main() {
	var opt options

	flag.StringVar(&opt.op, "op", "", "operation: session-create|session-update|deposit|owner-set|escrow-request|escrow-confirm|pool-distribute")
	flag.StringVar(&opt.actor, "actor", "smoke", "actor wallet")
	flag.StringVar(&opt.txID, "tx-id", "", "tx identifier; auto-generated when empty")
	flag.StringVar(&opt.nonce, "nonce", "", "nonce; auto-generated when empty")
	flag.StringVar(&opt.timestamp, "timestamp", "", "RFC3339 timestamp; default now UTC")
	flag.StringVar(&opt.privateKey, "private-key", "", "base64 private key (32-byte seed or 64-byte private key); default random")
	flag.StringVar(&opt.keyID, "key-id", "", "load key from SIGNING_KEYS env by id instead of -private-key")

	flag.Uint64Var(&opt.venueID, "venue-id", 1, "venue identifier")
	flag.StringVar(&opt.kind, "kind", "SOLO", "session kind: SOLO|TEAM|MULTIPLAYER")
	flag.StringVar(&opt.participants, "participants", "", "comma-separated participant wallets")
	flag.StringVar(&opt.lineUpsJSON, "line-ups-json", "", "line-ups JSON array for session-create")

	flag.Uint64Var(&opt.sessionID, "session-id", 0, "session identifier")
	flag.BoolVar(&opt.completed, "completed", false, "mark session completed on session-update")
	flag.StringVar(&opt.resolutionJSON, "resolution-json", "", "pre-resolved reward JSON for session-update")

	flag.Uint64Var(&opt.amount, "amount", 0, "amount for deposit or pool-distribute")
	flag.StringVar(&opt.token, "token", "NATIVE", "token symbol")

	flag.StringVar(&opt.owner, "owner", "", "owner wallet for owner-set")
	flag.StringVar(&opt.wallet, "wallet", "", "wallet for escrow-request")
	flag.StringVar(&opt.winner, "winner", "", "winner wallet for escrow-confirm")
	flag.Parse()

	op, err := parseOperation(opt.op)
	if err != nil {
		log.Fatal(err)
	}
	opt.actor = strings.TrimSpace(opt.actor)
	if opt.actor == "" {
		log.Fatal("actor is required")
	}

	payload, err := buildPayload(op, opt)
	if err != nil {
		log.Fatal(err)
	}
	privateKey, err := loadPrivateKey(opt)
	if err != nil {
		log.Fatal(err)
	}
	ts, err := parseTimestamp(opt.timestamp)
	if err != nil {
		log.Fatal(err)
	}

	txID := strings.TrimSpace(opt.txID)
	if txID == "" {
		txID = "tx-" + uuid.NewString()
	}
	nonce := strings.TrimSpace(opt.nonce)
	if nonce == "" {
		nonce = "n-" + uuid.NewString()
	}
	tx := protocol.Tx{
		TxID:      txID,
		Nonce:     nonce,
		Timestamp: ts,
		Actor:     opt.actor,
		Op:        op,
		Payload:   payload,
	}
	if err := tx.Sign(privateKey); err != nil {
		log.Fatal(err)
	}

	out, err := json.Marshal(tx)
	if err != nil {
		log.Fatal(err)
	}
	_, _ = os.Stdout.Write(out)
}

func parseOperation(raw string) (protocol.Operation, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "session-create":
		return protocol.OpSessionCreate, nil
	case "session-update":
		return protocol.OpSessionUpdate, nil
	case "deposit":
		return protocol.OpDeposit, nil
	case "owner-set":
		return protocol.OpOwnerSet, nil
	case "escrow-request":
		return protocol.OpEscrowRequest, nil
	case "escrow-confirm":
		return protocol.OpEscrowConfirm, nil
	case "pool-distribute":
		return protocol.OpPoolDistribute, nil
	default:
		return "", fmt.Errorf("unknown or missing -op: %q", raw)
	}
}

func buildPayload(op protocol.Operation, opt options) (json.RawMessage, error) {
	switch op {
	case protocol.OpSessionCreate:
		kind, err := session.ParseKind(strings.ToUpper(strings.TrimSpace(opt.kind)))
		if err != nil {
			return nil, err
		}
		var lineUps []session.LineUp
		if strings.TrimSpace(opt.lineUpsJSON) != "" {
			if err := json.Unmarshal([]byte(opt.lineUpsJSON), &lineUps); err != nil {
				return nil, fmt.Errorf("invalid line-ups-json: %w", err)
			}
		}
		return json.Marshal(protocol.SessionCreatePayload{
			VenueID:      opt.venueID,
			Kind:         kind,
			Participants: splitCSV(opt.participants),
			LineUps:      lineUps,
		})
	case protocol.OpSessionUpdate:
		if opt.sessionID == 0 {
			return nil, fmt.Errorf("session-id is required")
		}
		var res *session.Resolution
		if strings.TrimSpace(opt.resolutionJSON) != "" {
			res = &session.Resolution{}
			if err := json.Unmarshal([]byte(opt.resolutionJSON), res); err != nil {
				return nil, fmt.Errorf("invalid resolution-json: %w", err)
			}
		}
		return json.Marshal(protocol.SessionUpdatePayload{
			SessionID:  opt.sessionID,
			Completed:  opt.completed,
			Resolution: res,
		})
	case protocol.OpDeposit:
		return json.Marshal(protocol.DepositPayload{
			VenueID: opt.venueID,
			Amount:  opt.amount,
			Token:   opt.token,
		})
	case protocol.OpOwnerSet:
		return json.Marshal(protocol.OwnerSetPayload{
			VenueID: opt.venueID,
			Owner:   opt.owner,
		})
	case protocol.OpEscrowRequest:
		wallet := strings.TrimSpace(opt.wallet)
		if wallet == "" {
			wallet = opt.actor
		}
		return json.Marshal(protocol.EscrowRequestPayload{Wallet: wallet})
	case protocol.OpEscrowConfirm:
		return json.Marshal(protocol.EscrowConfirmPayload{Winner: opt.winner})
	case protocol.OpPoolDistribute:
		return json.Marshal(protocol.PoolDistributePayload{
			Amount: opt.amount,
			Token:  opt.token,
		})
	default:
		return nil, fmt.Errorf("unsupported op: %s", op)
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return parsed.UTC(), nil
}

func loadPrivateKey(opt options) (ed25519.PrivateKey, error) {
	if keyID := strings.TrimSpace(opt.keyID); keyID != "" {
		ks, err := keystore.NewFromEnv()
		if err != nil {
			return nil, err
		}
		return ks.GetKey(context.Background(), keyID)
	}
	trimmed := strings.TrimSpace(opt.privateKey)
	if trimmed == "" {
		_, key, err := ed25519.GenerateKey(rand.Reader)
		return key, err
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid private-key base64: %w", err)
	}
	switch len(decoded) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(decoded), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), nil
	default:
		return nil, fmt.Errorf("invalid private-key length: %d (expected 32 or 64 bytes)", len(decoded))
	}
}
