// Package logger builds *slog.Logger values with functional options, helper
// attribute constructors, and attributes injected from context.Context.
//
// New creates a text or JSON handler depending on the configured Format and
// wraps it with a handler that runs registered ContextExtractor callbacks before
// delegating. An attribute already passed at the call site is not repeated. FromConfig applies the environment defaults
// from a Config loaded with pkg/config and enables job id extraction.
//
// # Usage
//
//	log := logger.FromConfig(cfg.Log)
//	logger.SetAsDefault(log)
//
//	ctx = logger.ContextWithJobID(ctx, env.ID.String())
//	log.InfoContext(ctx, "notification delivered",
//	    logger.Provider(receipt.Provider),
//	    logger.MessageID(receipt.MessageID),
//	    logger.Duration(time.Since(start)),
//	)
//
// # Configuration
//
//   - WithDevelopment / WithStaging / WithProduction / WithEnvironment: per-environment defaults.
//   - WithFormat / WithTextFormatter / WithJSONFormatter: output format.
//   - WithLevel: minimum level.
//   - WithAttr: static attributes.
//   - WithContextExtractors / WithContextValue / WithJobContext: attributes from context.
//
// Error and Errors return an empty attribute for nil errors, so
//
//	log.Info("job acked", logger.Error(err))
//
// needs no nil check.
package logger
