// Package pg serves the remote gateway contracts straight from PostgreSQL,
// for self-hosted setups without the codever API in front.
package pg

import (
	"strings"

	"github.com/google/uuid"

	"github.com/LamboYu/codever/internal/db"
	"github.com/LamboYu/codever/internal/gateway"
)

// MaxHistory is the number of history ids kept per user.
const MaxHistory = 50

type Gateway struct {
	base        *db.Base
	idGenerator func() string
}

var _ gateway.Remote = (*Gateway)(nil)

func New(base *db.Base) *Gateway {
	return &Gateway{
		base: base,
		idGenerator: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
}
