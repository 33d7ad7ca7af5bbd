package fhe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shadowmint/go-token-client/entities"
)

// RelayerClient talks to the FHE relayer over HTTP. It implements Runtime.
type RelayerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRelayerClient(baseURL string, timeout time.Duration) *RelayerClient {
	return &RelayerClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type encryptRequest struct {
	ContractAddress string `json:"contractAddress"`
	UserAddress     string `json:"userAddress"`
	Value           uint64 `json:"value"`
}

type encryptResponse struct {
	Handle     string `json:"handle"`
	InputProof string `json:"inputProof"`
}

type decryptRequest struct {
	Handles []string `json:"handles"`
}

type decryptResponse struct {
	ClearValues map[string]string `json:"clearValues"`
}

func (c *RelayerClient) EncryptUint64(ctx context.Context, contract, user common.Address, value uint64) (entities.EncryptedHandle, []byte, error) {
	request := encryptRequest{
		ContractAddress: contract.Hex(),
		UserAddress:     user.Hex(),
		Value:           value,
	}
	var response encryptResponse
	err := c.post(ctx, "/v1/input-proof", request, &response)
	if err != nil {
		return entities.EncryptedHandle{}, nil, errors.Wrap(err, "requesting input proof")
	}

	proof, err := hexutil.Decode(response.InputProof)
	if err != nil {
		return entities.EncryptedHandle{}, nil, errors.Wrap(err, "decoding input proof")
	}
	return entities.HandleFromHex(response.Handle), proof, nil
}

func (c *RelayerClient) PublicDecrypt(ctx context.Context, handles []entities.EncryptedHandle) (map[entities.EncryptedHandle]*big.Int, error) {
	request := decryptRequest{
		Handles: make([]string, 0, len(handles)),
	}
	for _, handle := range handles {
		request.Handles = append(request.Handles, handle.Hex())
	}

	var response decryptResponse
	err := c.post(ctx, "/v1/public-decrypt", request, &response)
	if err != nil {
		return nil, errors.Wrap(err, "requesting public decryption")
	}

	values := make(map[entities.EncryptedHandle]*big.Int, len(response.ClearValues))
	for handle, clear := range response.ClearValues {
		value, ok := new(big.Int).SetString(clear, 10)
		if !ok {
			return nil, errors.Errorf("invalid clear value [%s] for handle [%s]", clear, handle)
		}
		values[entities.HandleFromHex(handle)] = value
	}
	return values, nil
}

func (c *RelayerClient) post(ctx context.Context, path string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshalling request")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return errors.Wrapf(err, "calling [%s]", path)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return errors.Errorf("calling [%s]: unexpected status [%d]", path, response.StatusCode)
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

// RelayerFactory creates relayer backed runtimes. Initialization pings the
// relayer so that an unreachable service surfaces before the first encryption.
type RelayerFactory struct {
	baseURL string
	timeout time.Duration
}

func NewRelayerFactory(baseURL string, timeout time.Duration) *RelayerFactory {
	return &RelayerFactory{baseURL: baseURL, timeout: timeout}
}

func (f *RelayerFactory) NewRuntime(ctx context.Context, provider string) (Runtime, error) {
	client := NewRelayerClient(f.baseURL, f.timeout)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/v1/keyurl", nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating ping request")
	}
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, errors.Wrapf(err, "relayer not reachable for provider [%s]", provider)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relayer ping returned status [%d]", response.StatusCode)
	}
	return client, nil
}
