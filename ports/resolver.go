package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// NameResolver answers read-only ENS queries. A zero address or empty
// name means "not registered / not configured"; an error means the
// upstream call itself failed. Callers decide which of the two is fatal.
type NameResolver interface {
	// ResolverAddress returns the resolver contract a name points to,
	// zero if none is configured
	ResolverAddress(ctx context.Context, name string) (common.Address, error)

	// ResolveOwner returns the registry owner of a name, zero if unregistered
	ResolveOwner(ctx context.Context, name string) (common.Address, error)

	// ResolveAddr returns the address a name forward-resolves to,
	// which may differ from the registry owner
	ResolveAddr(ctx context.Context, name string) (common.Address, error)

	// ReverseResolve returns the primary name an address points back to,
	// empty if none is set
	ReverseResolve(ctx context.Context, addr common.Address) (string, error)
}
