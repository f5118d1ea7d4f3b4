// Package mongobroker implements queue.Store on a MongoDB collection.
//
// Each job is one document keyed by its id. Claim is a FindOneAndUpdate sorted by
// available_at then created_at, and Nack is a pipeline update, so every transition is a
// single atomic document write. Documents whose lease expired match the claim filter
// again, which recovers jobs from crashed workers.
//
// # Usage
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "notify")
//	if err != nil {
//	    return err
//	}
//	broker, err := mongobroker.New(db)
//	if err != nil {
//	    return err
//	}
//	if err := broker.EnsureIndexes(ctx); err != nil {
//	    return err
//	}
package mongobroker
