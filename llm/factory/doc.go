// Package factory maps provider names to adapter constructors. It imports
// every adapter sub-package and exposes registry construction from YAML
// configuration or from the process environment, keeping the llm package
// free of adapter imports.
package factory
