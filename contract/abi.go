package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ABI of the confidential token contract. Balances and the total supply are
// euint64 ciphertexts, surfaced as bytes32 handles. Transfer amounts enter the
// contract as an external encrypted input plus proof and never appear in
// events.
const tokenABIJSON = `[
	{"type":"function","name":"encryptedBalanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"encryptedTotalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"faucetAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"faucetCooldown","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"timeUntilNextClaim","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"encryptedAmount","type":"bytes32"},{"name":"inputProof","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"claimFaucet","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"setFaucetSettings","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint64"},{"name":"cooldown","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"transferOwnership","stateMutability":"nonpayable","inputs":[{"name":"newOwner","type":"address"}],"outputs":[]},
	{"type":"function","name":"makeBalanceDecryptable","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"makeTotalSupplyDecryptable","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true}],"anonymous":false},
	{"type":"event","name":"Mint","inputs":[{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint64","indexed":false}],"anonymous":false},
	{"type":"event","name":"Burn","inputs":[{"name":"from","type":"address","indexed":true},{"name":"amount","type":"uint64","indexed":false}],"anonymous":false},
	{"type":"event","name":"FaucetClaimed","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint64","indexed":false}],"anonymous":false}
]`

var tokenABI = mustParseABI()

func mustParseABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(tokenABIJSON))
	if err != nil {
		panic("parsing token abi: " + err.Error())
	}
	return parsed
}
