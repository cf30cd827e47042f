package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with the gorm handle (or transaction)
// every repository method operates on.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context, tx *gorm.DB) Context {
	return Context{Ctx: ctx, Tx: tx}
}

// DB returns the handle bound to the request context.
func (c Context) DB() *gorm.DB {
	return c.Tx.WithContext(c.Ctx)
}
