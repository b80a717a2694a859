// Sanctuary - Wellness Video Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sanctuary

// Package services adapts application components to suture.Service.
//
// Each service blocks in Serve until its context is canceled and implements
// fmt.Stringer so supervisor events name it.
//
//   - HTTPServerService: ListenAndServe with graceful Shutdown
//   - SnapshotService: periodic engine snapshots behind a circuit breaker,
//     plus a final save on shutdown
package services
