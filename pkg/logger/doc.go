// Package logger builds the service's *slog.Logger.
//
// New returns a logger whose handler is wrapped by a decorator that runs
// ContextExtractor callbacks on every record, so request-scoped values such
// as the request id and the current tenant id show up without being passed
// around explicitly:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, cfg.AppName),
//	    logger.WithContextExtractors(
//	        logger.RequestIDExtractor(),
//	        tenant.LoggerExtractor(),
//	    ),
//	)
//	log.InfoContext(ctx, "ticket created", logger.Component("api"))
//
// Attribute helpers (Error, OrganizationID, Source, ...) keep key names
// consistent across packages. Error and Errors return an empty attribute for
// nil errors, which slog drops.
package logger
