// Package app wires the export service together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Load configuration from config.yaml and SPIRO_* environment variables
//  2. Initialize the JSON logger and the Prometheus collector
//  3. Load the population file into the store
//  4. Build the export and health services
//  5. Set up the chi router, middleware and handlers
//  6. Create the HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(ctx)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. In-flight
// requests are given Server.ShutdownTimeout to complete and the population
// watcher is stopped. Initialization errors are returned to the caller; the
// package never calls os.Exit.
package app
