// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// WithTransaction runs fn inside a Mongo multi-document transaction so that
// multi-step mutations (group soft-delete's group patch + bulk membership
// patch + audit insert, role changes with their invariant re-check, and so
// on) commit or roll back as one unit.
//
// Standalone servers reject sessions/transactions. When that happens nothing
// has been committed yet, so we log once and run fn without a transaction —
// local development against a single mongod keeps working, at the cost of
// atomicity that only a replica set can provide.
func WithTransaction(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			zap.L().Debug("mongo transactions unsupported; running without transaction", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		zap.L().Debug("mongo transactions unsupported; running without transaction", zap.Error(err))
		return fn(ctx)
	}
	return err
}

// Command error codes the server returns when transactions or sessions are
// not available on this deployment.
const (
	codeIllegalOperation    = 20
	codeCommandNotSupported = 51
	codeOperationNotSupportedInTransaction = 263
)

// IsNotSupported reports whether err indicates the deployment cannot run
// multi-document transactions (standalone mongod, very old servers, or some
// DocumentDB configurations).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeIllegalOperation, codeCommandNotSupported, codeOperationNotSupportedInTransaction:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "transaction") {
		if strings.Contains(msg, "replica set") ||
			strings.Contains(msg, "session") ||
			strings.Contains(msg, "illegal operation") {
			return true
		}
	}
	if strings.Contains(msg, "session") && strings.Contains(msg, "not supported") {
		return true
	}
	return false
}
