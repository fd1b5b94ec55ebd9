// Package install materializes dependency trees on disk.
//
// [Installer.Install] walks a [deps.Tree] depth-first and gives every node
// its own directory below the modules root:
//
//	node_modules/
//	├── .bin/tsc -> node_modules/typescript/bin/tsc
//	├── typescript/
//	└── express/
//	    ├── package.json
//	    └── node_modules/
//	        └── debug/
//
// Registry packages are downloaded as gzipped tarballs and extracted with
// their top-level wrapper directory removed. Local packages (file:<path>)
// are copied verbatim. An existing package directory is skipped together
// with its whole subtree unless force is set, in which case the directory
// and the node's command links are removed and the package is installed
// again.
//
// Installation stops at the first error. Packages already written stay
// on disk.
package install
