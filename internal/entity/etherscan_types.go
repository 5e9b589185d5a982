package entity

import jsoniter "github.com/json-iterator/go"

// EtherscanResponse is the envelope of Etherscan-family account endpoints.
// Result is a list on success and an error string otherwise, so it is decoded lazily.
type EtherscanResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

// EtherscanTransaction is an entry of the txlist action.
type EtherscanTransaction struct {
	Hash            string `json:"hash"`
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError"`
	Input           string `json:"input"`
	MethodID        string `json:"methodId"`
	FunctionName    string `json:"functionName"`
	ContractAddress string `json:"contractAddress"`
}
