package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shadowmint/go-token-client/contract"
	"github.com/shadowmint/go-token-client/entities"
	"github.com/shadowmint/go-token-client/workflow"
)

type TransferRunner interface {
	Execute(ctx context.Context, request workflow.TransferRequest, observer workflow.Observer) workflow.Run
}

type DecryptionRunner interface {
	Execute(ctx context.Context, account common.Address, observer workflow.Observer) workflow.Run
	ClearCachedBalance(account common.Address)
}

type SupplyRunner interface {
	Execute(ctx context.Context, observer workflow.Observer) workflow.Run
}

type OpsRunner interface {
	ClaimFaucet(ctx context.Context, observer workflow.Observer) workflow.Run
	Mint(ctx context.Context, request workflow.MintRequest, observer workflow.Observer) workflow.Run
	Burn(ctx context.Context, request workflow.BurnRequest, observer workflow.Observer) workflow.Run
	UpdateFaucetSettings(ctx context.Context, request workflow.FaucetSettingsRequest, observer workflow.Observer) workflow.Run
	TransferOwnership(ctx context.Context, newOwner string, observer workflow.Observer) workflow.Run
}

type StateReader interface {
	Timeline() []entities.TransactionEvent
	Balance(account common.Address) (entities.DecryptedBalance, bool)
	IsDecrypting(account common.Address) bool
	IsOwner() bool
}

type InfoReader interface {
	TokenInfo(ctx context.Context) (contract.TokenInfo, error)
	FaucetSettings(ctx context.Context) (contract.FaucetSettings, error)
	TimeUntilNextClaim(ctx context.Context, account common.Address) (uint64, error)
}

type Handler struct {
	transfer   TransferRunner
	decryption DecryptionRunner
	supply     SupplyRunner
	ops        OpsRunner
	state      StateReader
	info       InfoReader
	wallet     common.Address
}

func NewHandler(transfer TransferRunner, decryption DecryptionRunner, supply SupplyRunner,
	ops OpsRunner, state StateReader, info InfoReader, wallet common.Address) *Handler {
	return &Handler{
		transfer:   transfer,
		decryption: decryption,
		supply:     supply,
		ops:        ops,
		state:      state,
		info:       info,
		wallet:     wallet,
	}
}

type BalanceResponse struct {
	Atomic     string `json:"atomic"`
	Decimal    string `json:"decimal"`
	ObservedAt int64  `json:"observedAt"`
}

type TokenResponse struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type FaucetResponse struct {
	Amount                string `json:"amount"`
	CooldownSeconds       uint64 `json:"cooldownSeconds"`
	SecondsUntilNextClaim uint64 `json:"secondsUntilNextClaim"`
}

type StatusResponse struct {
	Account    string           `json:"account"`
	Owner      bool             `json:"owner"`
	Decrypting bool             `json:"decrypting"`
	Balance    *BalanceResponse `json:"balance,omitempty"`
	Token      TokenResponse    `json:"token"`
	Faucet     FaucetResponse   `json:"faucet"`
}

type EventResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Amount      string `json:"amount,omitempty"`
	ObservedAt  int64  `json:"observedAt"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

type TimelineResponse struct {
	Events []EventResponse `json:"events"`
}

type FieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type RunResponse struct {
	Phase       string               `json:"phase"`
	TxHash      string               `json:"txHash,omitempty"`
	Value       string               `json:"value,omitempty"`
	Error       string               `json:"error,omitempty"`
	FieldErrors []FieldErrorResponse `json:"fieldErrors,omitempty"`
}

type TransferRequestBody struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type MintRequestBody struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type BurnRequestBody struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type FaucetSettingsRequestBody struct {
	Amount          string `json:"amount"`
	CooldownSeconds string `json:"cooldownSeconds"`
}

type TransferOwnershipRequestBody struct {
	NewOwner string `json:"newOwner"`
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	token, err := h.info.TokenInfo(r.Context())
	if err != nil {
		log.Printf("Error getting token info: %v", err)
		http.Error(w, "Error getting token info", 500)
		return
	}
	settings, err := h.info.FaucetSettings(r.Context())
	if err != nil {
		log.Printf("Error getting faucet settings: %v", err)
		http.Error(w, "Error getting faucet settings", 500)
		return
	}
	remaining, err := h.info.TimeUntilNextClaim(r.Context(), h.wallet)
	if err != nil {
		log.Printf("Error getting faucet cooldown: %v", err)
		http.Error(w, "Error getting faucet cooldown", 500)
		return
	}

	response := StatusResponse{
		Account:    h.wallet.Hex(),
		Owner:      h.state.IsOwner(),
		Decrypting: h.state.IsDecrypting(h.wallet),
		Token: TokenResponse{
			Name:     token.Name,
			Symbol:   token.Symbol,
			Decimals: token.Decimals,
		},
		Faucet: FaucetResponse{
			Amount:                entities.ToDecimalString(new(big.Int).SetUint64(settings.Amount), entities.TokenDecimals),
			CooldownSeconds:       settings.Cooldown,
			SecondsUntilNextClaim: remaining,
		},
	}
	if balance, ok := h.state.Balance(h.wallet); ok {
		response.Balance = &BalanceResponse{
			Atomic:     balance.Value.String(),
			Decimal:    entities.ToDecimalString(balance.Value, entities.TokenDecimals),
			ObservedAt: balance.ObservedAt,
		}
	}
	writeJSON(w, response)
}

func (h *Handler) GetTimeline(w http.ResponseWriter, _ *http.Request) {
	events := h.state.Timeline()
	response := TimelineResponse{Events: make([]EventResponse, 0, len(events))}
	for _, event := range events {
		item := EventResponse{
			ID:          event.ID,
			Kind:        string(event.Kind),
			ObservedAt:  event.ObservedAt,
			TxHash:      event.TxHash.Hex(),
			BlockNumber: event.BlockNumber,
		}
		if event.From != (common.Address{}) {
			item.From = event.From.Hex()
		}
		if event.To != (common.Address{}) {
			item.To = event.To.Hex()
		}
		if event.Amount != nil {
			item.Amount = entities.ToDecimalString(event.Amount, entities.TokenDecimals)
		}
		response.Events = append(response.Events, item)
	}
	writeJSON(w, response)
}

func (h *Handler) PostTransfer(w http.ResponseWriter, r *http.Request) {
	var body TransferRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	run := h.transfer.Execute(r.Context(), workflow.TransferRequest{
		Recipient: body.Recipient,
		Amount:    body.Amount,
	}, nil)
	writeRun(w, run)
}

func (h *Handler) PostDecrypt(w http.ResponseWriter, r *http.Request) {
	run := h.decryption.Execute(r.Context(), h.wallet, nil)
	writeRun(w, run)
}

func (h *Handler) PostDecryptSupply(w http.ResponseWriter, r *http.Request) {
	run := h.supply.Execute(r.Context(), nil)
	writeRun(w, run)
}

func (h *Handler) PostClearBalance(w http.ResponseWriter, _ *http.Request) {
	h.decryption.ClearCachedBalance(h.wallet)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PostClaimFaucet(w http.ResponseWriter, r *http.Request) {
	run := h.ops.ClaimFaucet(r.Context(), nil)
	writeRun(w, run)
}

func (h *Handler) PostMint(w http.ResponseWriter, r *http.Request) {
	var body MintRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	run := h.ops.Mint(r.Context(), workflow.MintRequest{
		Account: body.Account,
		Amount:  body.Amount,
	}, nil)
	writeRun(w, run)
}

func (h *Handler) PostBurn(w http.ResponseWriter, r *http.Request) {
	var body BurnRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	run := h.ops.Burn(r.Context(), workflow.BurnRequest{
		Account: body.Account,
		Amount:  body.Amount,
	}, nil)
	writeRun(w, run)
}

func (h *Handler) PostFaucetSettings(w http.ResponseWriter, r *http.Request) {
	var body FaucetSettingsRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	run := h.ops.UpdateFaucetSettings(r.Context(), workflow.FaucetSettingsRequest{
		Amount:          body.Amount,
		CooldownSeconds: body.CooldownSeconds,
	}, nil)
	writeRun(w, run)
}

func (h *Handler) PostTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var body TransferOwnershipRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	run := h.ops.TransferOwnership(r.Context(), body.NewOwner, nil)
	writeRun(w, run)
}

func decodeBody(w http.ResponseWriter, r *http.Request, body any) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		log.Printf("Error decoding request body: %v", err)
		http.Error(w, "Error decoding request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeRun(w http.ResponseWriter, run workflow.Run) {
	response := RunResponse{Phase: string(run.Phase)}
	if run.TxHash != (common.Hash{}) {
		response.TxHash = run.TxHash.Hex()
	}
	if run.Value != nil {
		response.Value = entities.ToDecimalString(run.Value, entities.TokenDecimals)
	}
	if run.Err != nil {
		response.Error = run.Err.Error()
	}
	for _, fe := range run.FieldErrors {
		response.FieldErrors = append(response.FieldErrors, FieldErrorResponse{
			Field:   fe.Field,
			Message: fe.Message,
		})
	}

	status := http.StatusOK
	switch {
	case len(run.FieldErrors) > 0:
		status = http.StatusBadRequest
	case errors.Is(run.Err, entities.ErrNotOwner):
		status = http.StatusForbidden
	case run.Err != nil:
		status = http.StatusBadGateway
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, response any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Error encoding response", 500)
	}
}

