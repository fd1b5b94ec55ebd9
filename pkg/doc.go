// Package pkg provides the libraries behind the gpack package manager.
//
// # Overview
//
// gpack resolves the dependencies a project declares in package.json
// against an npm-compatible registry, installs them into nested
// node_modules directories, links their commands and records the result in
// gpack-lock.json so later installs are reproducible.
//
// # Architecture
//
// The typical data flow through an install:
//
//	package.json ([manifest])
//	         ↓
//	    [deps] Resolver + [registry] Client (metadata, cached by [cache])
//	         ↓
//	    [lockfile] Manager (gpack-lock.json)
//	         ↓
//	    [install] Installer (tarballs, local copies) + [bin] Linker
//	         ↓
//	    node_modules/ and node_modules/.bin/
//
// Scripts run through [script] Runner, which finds commands with the
// [bin] Locator.
//
// # Main Packages
//
//   - [config]: explicit configuration (paths, environment snapshot, registry, cache)
//   - [manifest]: package.json reading and order-preserving writing
//   - [registry]: registry metadata and tarball client; registrytest serves a fake registry
//   - [deps]: dependency tree model, specifier parsing and concurrent resolution
//   - [lockfile]: deterministic lockfile load and save
//   - [install]: tarball extraction, local copies and the per-package install walk
//   - [bin]: executable linking and command lookup
//   - [script]: package script execution
//
// # Infrastructure
//
//   - [cache]: file, Redis and no-op caches behind one interface
//   - [httputil]: retry helpers for transient HTTP failures
//   - [observability]: hooks for resolve, install, cache and HTTP events
//   - [errors]: coded errors with user-facing hints
//   - [buildinfo]: version information set at build time
package pkg
