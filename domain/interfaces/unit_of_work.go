package interfaces

import "context"

// UnitOfWork manages one storage transaction and the repositories bound to it
type UnitOfWork interface {
	// Transaction management
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	// Repository access, valid between Begin and Commit/Rollback
	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	CommandRepository() CommandRepository

	// EventBus buffers events until Commit
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
