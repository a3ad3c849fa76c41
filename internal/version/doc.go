// Package version captures the identity of a build: the declared version
// of a module, the revision of the checkout it is built from and the moment
// the build started.
//
// A Record is resolved once per invocation and is immutable afterwards. The
// revision is either the abbreviated HEAD hash of the enclosing git
// repository or the literal "release" when the tree carries no VCS metadata
// at all. A repository that exists but cannot be read is an error, never a
// silent "release".
package version
