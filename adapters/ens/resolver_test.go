package ens

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers contract calls from fixtures, dispatching on the
// 4-byte method selector like a real node would on calldata
type fakeBackend struct {
	hasResolver bool
	resolver    common.Address
	owner       common.Address
	addr        common.Address
	name        string
	err         error
}

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

func padAddress(addr common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], addr.Bytes())
	return out
}

func encodeString(s string) []byte {
	out := make([]byte, 64+(len(s)+31)/32*32)
	out[31] = 0x20
	big.NewInt(int64(len(s))).FillBytes(out[32:64])
	copy(out[64:], s)
	return out
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	sel := call.Data[:4]
	switch {
	case string(sel) == string(selector("resolver(bytes32)")):
		if !f.hasResolver {
			return padAddress(common.Address{}), nil
		}
		return padAddress(f.resolver), nil
	case string(sel) == string(selector("owner(bytes32)")):
		return padAddress(f.owner), nil
	case string(sel) == string(selector("addr(bytes32)")):
		return padAddress(f.addr), nil
	case string(sel) == string(selector("name(bytes32)")):
		return encodeString(f.name), nil
	}
	return nil, nil
}

func newTestResolver(t *testing.T, backend *fakeBackend) *Resolver {
	t.Helper()
	r, err := NewResolver(backend, common.Address{}, time.Second)
	require.NoError(t, err)
	return r
}

func TestNamehash(t *testing.T) {
	// Reference vectors from EIP-137
	tests := []struct {
		name string
		want string
	}{
		{"", "0x0000000000000000000000000000000000000000000000000000000000000000"},
		{"eth", "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae"},
		{"foo.eth", "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f"},
	}

	for _, tt := range tests {
		t.Run("namehash "+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Namehash(tt.name).Hex())
		})
	}
}

func TestResolveOwner(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	r := newTestResolver(t, &fakeBackend{hasResolver: true, owner: owner})

	got, err := r.ResolveOwner(context.Background(), "alice.eth")
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestResolveOwnerUnregistered(t *testing.T) {
	r := newTestResolver(t, &fakeBackend{})

	got, err := r.ResolveOwner(context.Background(), "nobody.eth")
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, got)
}

func TestResolverAddress(t *testing.T) {
	resolverAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	r := newTestResolver(t, &fakeBackend{hasResolver: true, resolver: resolverAddr})
	got, err := r.ResolverAddress(context.Background(), "alice.eth")
	require.NoError(t, err)
	assert.Equal(t, resolverAddr, got)

	r = newTestResolver(t, &fakeBackend{hasResolver: false})
	got, err = r.ResolverAddress(context.Background(), "alice.eth")
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, got)
}

func TestResolveAddr(t *testing.T) {
	target := common.HexToAddress("0x3333333333333333333333333333333333333333")
	r := newTestResolver(t, &fakeBackend{
		hasResolver: true,
		resolver:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		addr:        target,
	})

	got, err := r.ResolveAddr(context.Background(), "alice.eth")
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestResolveAddrNoResolver(t *testing.T) {
	r := newTestResolver(t, &fakeBackend{hasResolver: false})

	got, err := r.ResolveAddr(context.Background(), "alice.eth")
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, got)
}

func TestReverseResolve(t *testing.T) {
	r := newTestResolver(t, &fakeBackend{
		hasResolver: true,
		resolver:    common.HexToAddress("0x2222222222222222222222222222222222222222"),
		name:        "alice.eth",
	})

	got, err := r.ReverseResolve(context.Background(), common.HexToAddress("0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)
	assert.Equal(t, "alice.eth", got)
}

func TestReverseResolveNoPrimaryName(t *testing.T) {
	r := newTestResolver(t, &fakeBackend{hasResolver: false})

	got, err := r.ReverseResolve(context.Background(), common.HexToAddress("0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpstreamFailurePropagates(t *testing.T) {
	r := newTestResolver(t, &fakeBackend{err: errors.New("rpc unreachable")})

	_, err := r.ResolveOwner(context.Background(), "alice.eth")
	assert.Error(t, err)
	_, err = r.ReverseResolve(context.Background(), common.Address{})
	assert.Error(t, err)
}
