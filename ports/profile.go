package ports

import (
	"context"

	"github.com/ensgate/ensgate/core"
	"github.com/ethereum/go-ethereum/common"
)

// ProfileReader fetches the auxiliary data shown after login: balance,
// USD value and avatar. Implementations degrade to zero values on
// upstream failure; a profile fetch never fails a login.
type ProfileReader interface {
	Fetch(ctx context.Context, addr common.Address, ensName string) core.Profile
}
