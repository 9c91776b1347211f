// Package preflight provides readiness checks for the filesystem paths,
// contract, catalog, and object store rulecast depends on.
//
// These checks run in two contexts:
//   - `rulecast config validate` prints every result and fails when any
//     check fails.
//   - `rulecast serve` runs them at startup and logs failures as warnings so
//     a misconfigured bucket surfaces before the first upload.
//
// Checks are gated by configuration: the manifest directory is only checked
// for the filesystem backend and the bucket only for s3.
package preflight
