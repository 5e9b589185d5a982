package entity

import "strings"

// FlexString accepts both JSON strings and bare numbers. Moralis is not consistent about decimals.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	v := strings.TrimSpace(string(b))
	if v == "null" {
		*s = ""
		return nil
	}
	*s = FlexString(strings.Trim(v, `"`))
	return nil
}

// MoralisTransfersResponse is the page returned by the ERC-20 transfers endpoint.
type MoralisTransfersResponse struct {
	Cursor   string            `json:"cursor"`
	PageSize int               `json:"page_size"`
	Result   []MoralisTransfer `json:"result"`
}

// MoralisTransfer is a single ERC-20 transfer.
type MoralisTransfer struct {
	TransactionHash string     `json:"transaction_hash"`
	Address         string     `json:"address"`
	BlockTimestamp  string     `json:"block_timestamp"`
	BlockNumber     string     `json:"block_number"`
	FromAddress     string     `json:"from_address"`
	ToAddress       string     `json:"to_address"`
	Value           string     `json:"value"`
	ValueDecimal    string     `json:"value_decimal"`
	TransactionFee  string     `json:"transaction_fee"`
	TokenName       string     `json:"token_name"`
	TokenSymbol     string     `json:"token_symbol"`
	TokenDecimals   FlexString `json:"token_decimals"`
}

// MoralisPrice is the response of the ERC-20 price endpoint.
type MoralisPrice struct {
	UsdPrice        float64    `json:"usdPrice"`
	TokenName       string     `json:"tokenName"`
	TokenSymbol     string     `json:"tokenSymbol"`
	TokenDecimals   FlexString `json:"tokenDecimals"`
	TokenAddress    string     `json:"tokenAddress"`
	ExchangeName    string     `json:"exchangeName"`
	ExchangeAddress string     `json:"exchangeAddress"`
}

// MoralisTokenMetadata is an entry of the ERC-20 metadata endpoint.
type MoralisTokenMetadata struct {
	Address  string     `json:"address"`
	Name     string     `json:"name"`
	Symbol   string     `json:"symbol"`
	Decimals FlexString `json:"decimals"`
	Logo     string     `json:"logo"`
}
