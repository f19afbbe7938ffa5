// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package async lets a request-performing client hand its calls to a
// background job queue instead of executing them inline.
//
// A client embeds a *Dispatcher. Its mode decides what Request does:
//
//	client.SetMode(true)                 // default job for the client kind
//	client.Request(ctx, "sendMessage", p) // enqueued, returns a receipt
//
//	client.WithMode(false, func() error { // forced inline for the block
//	    _, err := client.Request(ctx, "sendMessage", p)
//	    return err
//	})
//
// When the queue later runs the job, QueueJob.Perform looks the client up
// by ID through a ClientLocator and repeats the request inline under a
// Performing context, so the job does not enqueue itself again. Perform
// never touches the client's mode, so workers may share a client.
//
// Mode reads and writes are synchronized, but overlapping WithMode calls on
// one client still interleave: the last restore wins. The resolver and its
// job caches are safe for concurrent use. DefaultResolver is the
// process-wide resolver for dispatchers built without one.
package async
