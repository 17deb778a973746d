// Package contracts holds the contract interface definitions the synchronizer calls
// and a small typed binding for issuing read-only calls against a deployment.
package contracts

// GavcoinABI interface of the token contract.
const GavcoinABI = `[
  {"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"remaining","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"price","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"_who","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[],"name":"buyin","outputs":[],"payable":true,"type":"function"},
  {"constant":false,"inputs":[{"name":"_value","type":"uint256"}],"name":"refund","outputs":[],"type":"function"},
  {"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[],"type":"function"},
  {"anonymous":false,"inputs":[{"indexed":true,"name":"buyer","type":"address"},{"indexed":false,"name":"price","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Buyin","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":true,"name":"buyer","type":"address"},{"indexed":false,"name":"price","type":"uint256"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Refund","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

// RegistryABI subset of the name registry used for address lookups.
const RegistryABI = `[
  {"constant":true,"inputs":[{"name":"_name","type":"bytes32"},{"name":"_key","type":"string"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

// Gavcoin read methods.
const (
	MethodTotalSupply = "totalSupply"
	MethodRemaining   = "remaining"
	MethodPrice       = "price"
	MethodBalanceOf   = "balanceOf"
)

// MethodGetAddress registry lookup method.
const MethodGetAddress = "getAddress"
