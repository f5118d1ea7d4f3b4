// Package mongo provides MongoDB connection management with environment-based
// configuration and retrying connects, used by the Mongo job broker.
//
// # Usage
//
//	var cfg mongo.Config
//	if err := env.Parse(&cfg); err != nil {
//	    return err
//	}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	health := mongo.Healthcheck(db.Client())
//
// # Error Handling
//
// Connection failures are joined with ErrFailedToConnectToMongo and health check
// failures with ErrHealthcheckFailed; check them with errors.Is.
package mongo
