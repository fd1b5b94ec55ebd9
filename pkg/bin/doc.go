// Package bin owns the shared executable layout.
//
// Every modules root (node_modules, a package's nested node_modules, or
// the global ~/.gpack/node_modules) has a .bin directory holding one
// symlink per command its packages declare. [Linker] creates and removes
// those links during installation; [Locator] finds commands for the
// script runner by checking the system PATH, then the project's local
// .bin, then the global .bin.
package bin
