/*
Package dsl provides a Go DSL for programmatically constructing rowflow schemas.

It allows developers to declare questionnaires with a type-safe, fluent builder
instead of YAML or JSON documents. Variables are laid out in the order they are
first added, which is the order the validator walks them.

Example usage:

	package main

	import (
		"github.com/aretw0/rowflow/pkg/dsl"
	)

	func main() {
		b := dsl.New("household").EndMarker("END")

		b.Add("name").Text()
		b.Add("has_children").
			Option("1", "").
			Option("2", "income")
		b.Add("children").Numeric().Range(1, 20)
		b.Add("income").Numeric().Min(0).NoAnswerSkip("END")

		schema := b.MustBuild()
		// ... pass schema to rowflow.Validator.Validate(...)
	}
*/
package dsl
