package ens

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ensgate/ensgate/ports"
)

// RegistryAddress is the ENS registry on Ethereum mainnet
const RegistryAddress = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

// DefaultCallTimeout bounds every upstream contract call so a hung RPC
// node cannot stall unrelated requests
const DefaultCallTimeout = 5 * time.Second

const registryABIJSON = `[
	{"inputs":[{"name":"node","type":"bytes32"}],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

const resolverABIJSON = `[
	{"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"node","type":"bytes32"}],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
]`

// errNoData marks a call that returned empty data, which on mainnet
// means the queried record simply is not set
var errNoData = errors.New("empty call result")

// ContractBackend is the slice of ethclient.Client the resolver needs
type ContractBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Resolver answers ENS queries against the on-chain registry
type Resolver struct {
	client      ContractBackend
	registry    common.Address
	registryABI abi.ABI
	resolverABI abi.ABI
	timeout     time.Duration
}

var _ ports.NameResolver = (*Resolver)(nil)

// NewResolver creates a resolver bound to the given registry contract.
// A zero registry address selects the mainnet registry.
func NewResolver(client ContractBackend, registry common.Address, timeout time.Duration) (*Resolver, error) {
	regABI, err := abi.JSON(strings.NewReader(registryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}
	resABI, err := abi.JSON(strings.NewReader(resolverABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse resolver ABI: %w", err)
	}
	if registry == (common.Address{}) {
		registry = common.HexToAddress(RegistryAddress)
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Resolver{
		client:      client,
		registry:    registry,
		registryABI: regABI,
		resolverABI: resABI,
		timeout:     timeout,
	}, nil
}

// Namehash computes the EIP-137 node hash of an ENS name
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelHash)
	}
	return node
}

// ResolverAddress returns the resolver contract configured for name,
// zero if the name has none
func (r *Resolver) ResolverAddress(ctx context.Context, name string) (common.Address, error) {
	return r.callAddress(ctx, r.registry, r.registryABI, "resolver", Namehash(name))
}

// ResolveOwner returns the registry owner of name, zero if unregistered
func (r *Resolver) ResolveOwner(ctx context.Context, name string) (common.Address, error) {
	return r.callAddress(ctx, r.registry, r.registryABI, "owner", Namehash(name))
}

// ResolveAddr forward-resolves name through its resolver contract
func (r *Resolver) ResolveAddr(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)
	resolverAddr, err := r.callAddress(ctx, r.registry, r.registryABI, "resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	if resolverAddr == (common.Address{}) {
		return common.Address{}, nil
	}
	return r.callAddress(ctx, resolverAddr, r.resolverABI, "addr", node)
}

// ReverseResolve returns the primary name addr points back to via the
// <addr>.addr.reverse convention, empty if none is set
func (r *Resolver) ReverseResolve(ctx context.Context, addr common.Address) (string, error) {
	reverseName := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverseName)

	resolverAddr, err := r.callAddress(ctx, r.registry, r.registryABI, "resolver", node)
	if err != nil {
		return "", err
	}
	if resolverAddr == (common.Address{}) {
		return "", nil
	}

	out, err := r.call(ctx, resolverAddr, r.resolverABI, "name", node)
	if err != nil {
		if errors.Is(err, errNoData) {
			return "", nil
		}
		return "", err
	}

	var name string
	if err := r.resolverABI.UnpackIntoInterface(&name, "name", out); err != nil {
		return "", fmt.Errorf("unpack name: %w", err)
	}
	return name, nil
}

func (r *Resolver) callAddress(ctx context.Context, to common.Address, contractABI abi.ABI, method string, node common.Hash) (common.Address, error) {
	out, err := r.call(ctx, to, contractABI, method, node)
	if err != nil {
		if errors.Is(err, errNoData) {
			return common.Address{}, nil
		}
		return common.Address{}, err
	}

	var addr common.Address
	if err := contractABI.UnpackIntoInterface(&addr, method, out); err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	return addr, nil
}

func (r *Resolver) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, node common.Hash) ([]byte, error) {
	data, err := contractABI.Pack(method, node)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, errNoData
	}
	return out, nil
}
