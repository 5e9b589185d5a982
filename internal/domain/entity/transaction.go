package entity

// TransactionType is the coarse classification of a wallet transaction.
type TransactionType string

const (
	TransactionSwap    TransactionType = "swap"
	TransactionApprove TransactionType = "approve"
	TransactionSend    TransactionType = "send"
	TransactionReceive TransactionType = "receive"
	TransactionOther   TransactionType = "other"
)

// TransactionRecord is a normalized transaction coming from an explorer or an indexer.
// Timestamp is in milliseconds since the Unix epoch.
type TransactionRecord struct {
	Hash            string          `json:"hash"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Value           string          `json:"value"`
	ValueFormatted  string          `json:"valueFormatted"`
	Timestamp       int64           `json:"timestamp"`
	BlockNumber     uint64          `json:"blockNumber"`
	GasUsed         string          `json:"gasUsed"`
	GasPrice        string          `json:"gasPrice"`
	Input           string          `json:"input"`
	Type            TransactionType `json:"type"`
	TokenAddress    string          `json:"tokenAddress,omitempty"`
	TokenSymbol     string          `json:"tokenSymbol,omitempty"`
	TokenName       string          `json:"tokenName,omitempty"`
	TokenAmount     string          `json:"tokenAmount,omitempty"`
	TokenDecimals   uint8           `json:"tokenDecimals,omitempty"`
	IsTokenTransfer bool            `json:"isTokenTransfer"`
	ChainID         string          `json:"chainId"`
	ChainName       string          `json:"chainName"`
}
