// Package version defines the current Hush version number.
package version

// Number is the current Hush version number.
// We use semantic versioning (http://semver.org/).
const Number = "0.1.0"
