package evm

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Permit2Address is the canonical Uniswap Permit2 deployment.
const Permit2Address = "0x000000000022D473030F116dDEE9F6B43aC78BA3"

// Only the batch overload of transferFrom is declared, so it is addressable by name.
const permit2ABI = `[
 {"inputs":[{"components":[
   {"internalType":"address","name":"from","type":"address"},
   {"internalType":"address","name":"to","type":"address"},
   {"internalType":"uint160","name":"amount","type":"uint160"},
   {"internalType":"address","name":"token","type":"address"}],
  "internalType":"struct IAllowanceTransfer.AllowanceTransferDetails[]","name":"transferDetails","type":"tuple[]"}],
  "name":"transferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[
   {"internalType":"address","name":"owner","type":"address"},
   {"internalType":"address","name":"token","type":"address"},
   {"internalType":"address","name":"spender","type":"address"}],
  "name":"allowance","outputs":[
   {"internalType":"uint160","name":"amount","type":"uint160"},
   {"internalType":"uint48","name":"expiration","type":"uint48"},
   {"internalType":"uint48","name":"nonce","type":"uint48"}],
  "stateMutability":"view","type":"function"}
]`

// ERC20 ABI minimal part for balanceOf, allowance and decimals
const erc20ABI = `[
 {"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
 {"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
 {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"}
]`

// AllowanceTransferDetails mirrors the Permit2 tuple. Field names must match the ABI components.
type AllowanceTransferDetails struct {
	From   common.Address
	To     common.Address
	Amount *big.Int
	Token  common.Address
}

var (
	parsedPermit2ABI abi.ABI
	parsedERC20ABI   abi.ABI
	parseABIOnce     sync.Once
)

func initParsedABIs() {
	parseABIOnce.Do(func() {
		var err error
		parsedPermit2ABI, err = abi.JSON(strings.NewReader(permit2ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse Permit2 ABI: %v", err))
		}
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// PackTransferFrom encodes Permit2 transferFrom(AllowanceTransferDetails[]).
func PackTransferFrom(details []AllowanceTransferDetails) ([]byte, error) {
	initParsedABIs()
	return parsedPermit2ABI.Pack("transferFrom", details)
}
