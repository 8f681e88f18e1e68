package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20ABI is the subset of the ERC20 interface the panel calls.
const ERC20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]}
]`

// EscrowABI is the subset of the escrow contract the panel calls.
const EscrowABI = `[
	{"type":"function","name":"fund","stateMutability":"nonpayable",
	 "inputs":[{"name":"dealId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"markCompleted","stateMutability":"nonpayable",
	 "inputs":[{"name":"dealId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"dispute","stateMutability":"nonpayable",
	 "inputs":[{"name":"dealId","type":"uint256"}],"outputs":[]}
]`

var (
	parseOnce sync.Once
	erc20ABI  abi.ABI
	escrowABI abi.ABI
	parseErr  error
)

func parsedABIs() (abi.ABI, abi.ABI, error) {
	parseOnce.Do(func() {
		erc20ABI, parseErr = abi.JSON(strings.NewReader(ERC20ABI))
		if parseErr != nil {
			parseErr = fmt.Errorf("failed to parse ERC20 ABI: %w", parseErr)
			return
		}
		escrowABI, parseErr = abi.JSON(strings.NewReader(EscrowABI))
		if parseErr != nil {
			parseErr = fmt.Errorf("failed to parse escrow ABI: %w", parseErr)
		}
	})
	return erc20ABI, escrowABI, parseErr
}
