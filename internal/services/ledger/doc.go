/*
Package ledger derives account balances from the transaction log and keeps
the stored account balance in step with it.

The balance of an account is always

	sum(INCOME, COMPLETED) - sum(EXPENSE or TRANSFER, COMPLETED)

PENDING and FAILED transactions never contribute. The stored balance is a
cache of that value; Sync overwrites it with the recomputed figure, so
repeating a Sync is harmless.

Usage:

	rec := ledger.NewReconciler(store.Accounts(), store.Transactions(), ledger.Config{}, logger)

	// Check an EXPENSE against the balance floor
	check, err := rec.ValidateDebit(ctx, userID, amount)

	// Heal a drifted stored balance
	res, err := rec.Reconcile(ctx, userID)

Callers that need validate-then-write atomicity run the reconciler against
repositories bound to a storage transaction while holding the account lock.
*/
package ledger
