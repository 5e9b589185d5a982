package entity

// HolderType is the behavioural class of a token holder.
type HolderType string

const (
	HolderDev         HolderType = "dev"
	HolderInsider     HolderType = "insider"
	HolderSniper      HolderType = "sniper"
	HolderSmartWallet HolderType = "smart_wallet"
	HolderBot         HolderType = "bot"
	HolderRegular     HolderType = "regular"
)

// HolderTypes lists every holder type in display order.
var HolderTypes = []HolderType{HolderDev, HolderInsider, HolderSniper, HolderSmartWallet, HolderBot, HolderRegular}

// HolderInfo describes one holder of a token. Timestamps are in milliseconds.
type HolderInfo struct {
	Address          string     `json:"address"`
	Balance          string     `json:"balance"`
	BalanceFormatted string     `json:"balanceFormatted"`
	Percentage       float64    `json:"percentage"`
	HolderType       HolderType `json:"holderType"`
	FirstSeen        int64      `json:"firstSeen"`
	LastActive       int64      `json:"lastActive"`
	TransactionCount int        `json:"transactionCount"`
	IsContract       bool       `json:"isContract"`
}

// AnomalyReport lists the suspicious patterns found for one holder.
type AnomalyReport struct {
	Address      string   `json:"address"`
	IsSuspicious bool     `json:"isSuspicious"`
	Reasons      []string `json:"reasons"`
}

// Wallet is a tracked wallet address.
type Wallet struct {
	Address string `json:"address"`
}
