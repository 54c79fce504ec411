package model

// Warning scopes.
const (
	ScopeDay    = "day"
	ScopeMarket = "market"
	ScopeTx     = "tx"
	ScopeVault  = "vault"
)

// Warning records a skip or degrade tied to a date, market, or transaction.
type Warning struct {
	Time    string `json:"ts"`
	Job     string `json:"job"`
	Vault   string `json:"vault"`
	Scope   string `json:"scope"`
	Key     string `json:"key"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}
