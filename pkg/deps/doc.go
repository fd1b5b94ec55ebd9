// Package deps models and resolves dependency trees.
//
// # Model
//
// A [Tree] maps dependency names to [Node] values. Each node owns its own
// nested Tree; nothing is shared between branches, so a package required
// by two parents appears (and is later installed) twice. Trees remember
// insertion order, and [Tree.Sorted] produces the alphabetically ordered
// copy that is written to the lockfile.
//
// # Resolving
//
// [Resolver.Build] turns a name to range mapping into a Tree:
//
//	r := deps.NewResolver(client, deps.Options{Concurrency: 16})
//	tree, err := r.Build(ctx, map[string]string{"express": "^4.18.2"})
//
// Ranges are not evaluated: [NormalizeVersion] strips a leading ^ or ~ and
// the remainder is sent to the registry verbatim ("latest" when empty).
// Siblings are resolved concurrently; every registry lookup shares one
// semaphore so the total number of in-flight requests stays bounded no
// matter how wide the tree fans out.
//
// A package that reappears among its own ancestors (same name and
// version) fails the build with errors.ErrCodeDependencyCycle.
package deps
