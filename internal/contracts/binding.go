package contracts

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Caller performs eth_call. *ethclient.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Binding resolved, callable handle to a contract deployment. Immutable after creation
// and safe for concurrent use.
type Binding struct {
	address common.Address
	abi     abi.ABI
	caller  Caller
}

// NewBinding parses abiJSON and binds it to address.
func NewBinding(address common.Address, abiJSON string, caller Caller) (*Binding, error) {
	if caller == nil {
		return nil, errors.New("contract caller is nil")
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrap(err, "parse contract ABI")
	}

	return &Binding{address: address, abi: parsed, caller: caller}, nil
}

// Address returns the bound deployment address.
func (b *Binding) Address() common.Address {
	return b.address
}

// Call invokes a constant method at the latest block and returns its decoded outputs.
func (b *Binding) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	to := b.address
	output, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}

	values, err := b.abi.Unpack(method, output)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method)
	}

	return values, nil
}

// CallBig invokes a method returning a single uint256.
func (b *Binding) CallBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := b.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, errors.Errorf("%s returned %d values, expected 1", method, len(values))
	}

	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("%s returned %T, expected *big.Int", method, values[0])
	}

	return v, nil
}

// CallAddress invokes a method returning a single address.
func (b *Binding) CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	values, err := b.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(values) != 1 {
		return common.Address{}, errors.Errorf("%s returned %d values, expected 1", method, len(values))
	}

	v, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, errors.Errorf("%s returned %T, expected address", method, values[0])
	}

	return v, nil
}
