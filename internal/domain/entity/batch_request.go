package entity

import "math/big"

// BalanceRequestType tells the chain client which call answers a balance request.
type BalanceRequestType int

const (
	NativeBalanceRequest BalanceRequestType = iota // eth_getBalance
	TokenBalanceRequest                            // ERC-20 balanceOf
)

// NativeTokenAddress stands in for a contract address when the asset is the chain's native currency.
const NativeTokenAddress = "native"

// BalanceRequestItem is one element of a balance batch. ID is echoed back in BalanceResultItem.RequestID.
type BalanceRequestItem struct {
	ID            string
	Type          BalanceRequestType
	WalletAddress string
	TokenAddress  string
}

// BalanceResultItem answers one BalanceRequestItem. Error is set per item; Balance is nil then.
type BalanceResultItem struct {
	RequestID     string
	WalletAddress string
	TokenAddress  string
	IsNative      bool
	Balance       *big.Int
	Error         error
}
