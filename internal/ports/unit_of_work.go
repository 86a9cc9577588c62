package ports

import "context"

// Tx is an opaque transaction handle. Infrastructure picks the concrete type (*gorm.DB).
type Tx interface{}

// UnitOfWork wraps fn in a transaction. A non-nil error rolls back.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
