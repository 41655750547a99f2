package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcRequest struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// newRPCServer serves canned JSON-RPC results keyed by method name.
func newRPCServer(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, ok := results[req.Method]
		if !ok {
			t.Fatalf("unexpected RPC method %q", req.Method)
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if errObj, isErr := result.(map[string]interface{}); isErr && errObj["code"] != nil {
			resp["error"] = result
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint:          endpoint,
		Network:           "devnet",
		Commitment:        rpc.CommitmentConfirmed,
		ConfirmTimeout:    2 * time.Second,
		ConfirmPoll:       10 * time.Millisecond,
		RequestsPerSecond: 1000,
	}, zap.NewNop())
}

func TestGetLamportBalance(t *testing.T) {
	server := newRPCServer(t, map[string]interface{}{
		"getBalance": map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value":   uint64(5_000_000_000),
		},
	})
	defer server.Close()

	client := testClient(server.URL)
	balance, err := client.GetLamportBalance(context.Background(), sol.SystemProgramID)

	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), balance)
}

func TestGetTokenBalance(t *testing.T) {
	t.Run("returns parsed balance", func(t *testing.T) {
		server := newRPCServer(t, map[string]interface{}{
			"getTokenAccountBalance": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"amount":         "123450000000",
					"decimals":       9,
					"uiAmount":       123.45,
					"uiAmountString": "123.45",
				},
			},
		})
		defer server.Close()

		client := testClient(server.URL)
		balance, err := client.GetTokenBalance(context.Background(), sol.SystemProgramID)

		require.NoError(t, err)
		assert.Equal(t, uint64(123_450_000_000), balance.Amount)
		assert.Equal(t, uint8(9), balance.Decimals)
	})

	t.Run("maps missing account to ErrAccountNotFound", func(t *testing.T) {
		server := newRPCServer(t, map[string]interface{}{
			"getTokenAccountBalance": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid param: could not find account",
			},
		})
		defer server.Close()

		client := testClient(server.URL)
		_, err := client.GetTokenBalance(context.Background(), sol.SystemProgramID)

		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestAccountExists(t *testing.T) {
	t.Run("missing account reports false without error", func(t *testing.T) {
		server := newRPCServer(t, map[string]interface{}{
			"getAccountInfo": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value":   nil,
			},
		})
		defer server.Close()

		client := testClient(server.URL)
		exists, err := client.AccountExists(context.Background(), sol.SystemProgramID)

		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestConfirmTransaction(t *testing.T) {
	t.Run("returns once commitment reached", func(t *testing.T) {
		server := newRPCServer(t, map[string]interface{}{
			"getSignatureStatuses": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": []interface{}{map[string]interface{}{
					"slot":               1,
					"confirmations":      5,
					"confirmationStatus": "confirmed",
					"err":                nil,
				}},
			},
		})
		defer server.Close()

		client := testClient(server.URL)
		err := client.ConfirmTransaction(context.Background(), sol.Signature{})

		assert.NoError(t, err)
	})

	t.Run("times out when status never lands", func(t *testing.T) {
		server := newRPCServer(t, map[string]interface{}{
			"getSignatureStatuses": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value":   []interface{}{nil},
			},
		})
		defer server.Close()

		client := NewClient(Config{
			Endpoint:          server.URL,
			Commitment:        rpc.CommitmentConfirmed,
			ConfirmTimeout:    50 * time.Millisecond,
			ConfirmPoll:       10 * time.Millisecond,
			RequestsPerSecond: 1000,
		}, zap.NewNop())

		err := client.ConfirmTransaction(context.Background(), sol.Signature{})
		assert.ErrorIs(t, err, ErrConfirmationTimeout)
	})

	t.Run("surfaces on-chain failure", func(t *testing.T) {
		server := newRPCServer(t, map[string]interface{}{
			"getSignatureStatuses": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": []interface{}{map[string]interface{}{
					"slot":               1,
					"confirmationStatus": "confirmed",
					"err":                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
				}},
			},
		})
		defer server.Close()

		client := testClient(server.URL)
		err := client.ConfirmTransaction(context.Background(), sol.Signature{})

		assert.ErrorIs(t, err, ErrTransactionFailed)
	})
}

func TestParseAddress(t *testing.T) {
	t.Run("accepts valid base58 key", func(t *testing.T) {
		key, err := ParseAddress("So11111111111111111111111111111111111111112")
		require.NoError(t, err)
		assert.Equal(t, "So11111111111111111111111111111111111111112", key.String())
	})

	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		_, err := ParseAddress("not-a-key-0OIl")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAddress("abc")
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}

func TestDeriveTokenAccount(t *testing.T) {
	owner := sol.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	mint := sol.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	ata, err := DeriveTokenAccount(owner, mint)
	require.NoError(t, err)

	// Derivation is deterministic for a given owner and mint.
	again, err := DeriveTokenAccount(owner, mint)
	require.NoError(t, err)
	assert.Equal(t, ata, again)
	assert.False(t, ata.IsZero())
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t,
		"https://explorer.solana.com/tx/abc?cluster=devnet",
		ExplorerURL("devnet", "abc"))
	assert.Equal(t,
		"https://explorer.solana.com/tx/abc",
		ExplorerURL("mainnet-beta", "abc"))
}

func TestBuildMintTransaction(t *testing.T) {
	mint := sol.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	owner := sol.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	ata, err := DeriveTokenAccount(owner, mint)
	require.NoError(t, err)

	t.Run("mint only", func(t *testing.T) {
		tx, err := BuildMintTransaction(MintParams{
			Mint:        mint,
			Destination: ata,
			Authority:   owner,
			Amount:      1000,
			Payer:       owner,
		}, sol.Hash{})

		require.NoError(t, err)
		assert.Len(t, tx.Message.Instructions, 1)
	})

	t.Run("prepends ATA creation", func(t *testing.T) {
		tx, err := BuildMintTransaction(MintParams{
			Mint:        mint,
			Destination: ata,
			Authority:   owner,
			Amount:      1000,
			CreateATA:   true,
			ATAOwner:    owner,
			Payer:       owner,
		}, sol.Hash{})

		require.NoError(t, err)
		assert.Len(t, tx.Message.Instructions, 2)
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		_, err := BuildMintTransaction(MintParams{Mint: mint, Destination: ata, Authority: owner, Payer: owner}, sol.Hash{})
		assert.Error(t, err)
	})
}

func TestBuildBurnTransaction(t *testing.T) {
	mint := sol.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	owner := sol.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	ata, err := DeriveTokenAccount(owner, mint)
	require.NoError(t, err)

	tx, err := BuildBurnTransaction(BurnParams{
		Mint:   mint,
		Source: ata,
		Owner:  owner,
		Amount: 500,
	}, sol.Hash{})

	require.NoError(t, err)
	assert.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, owner, tx.Message.AccountKeys[0])
}
