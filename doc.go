/*
Package rowflow validates survey and data-entry rows against a questionnaire schema.

A schema is an ordered list of variables. Each variable has a type (options,
numeric, text or filter) and flow rules: skips triggered by an option, an
unconditional skip, a skip for "no answer" codes, a dependency on another
variable's value, or an enabling function. Given a row of answers the
Validator walks the schema once and reports, for every variable, whether the
flow reaches it and whether its value is acceptable.

# Concept

The flow is what an interviewer would follow on paper: answer the first
question, jump where the answer says, stop at the first required question
without an answer. rowflow classifies each variable against that path:

  - valid, invalid, out_of_range: the flow reached the variable and it has a value.
  - actual: the first required variable without a value; the one being asked.
  - not_yet: after the current variable, still to be asked.
  - skipped, out_of_flow_due_to_skip: jumped over, empty or (wrongly) answered.
  - omitted, out_of_flow_due_to_omission: answers exist after an empty required variable.
  - optional_unanswered, computed: variables the flow does not wait for.

It also links every variable to the next one the flow visits and summarizes
the row as ok, incomplete, empty or has_problems.

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/rowflow"
		"github.com/aretw0/rowflow/pkg/domain"
		"github.com/aretw0/rowflow/pkg/dsl"
	)

	func main() {
		b := dsl.New("household")
		b.Add("name").Text()
		b.Add("has_children").Option("1", "").Option("2", "income")
		b.Add("children").Numeric().Range(1, 20)
		b.Add("income").Numeric().Min(0)

		v := rowflow.New()
		res, err := v.Validate(context.Background(), b.MustBuild(),
			domain.Row{"name": "Ana", "has_children": 2}, domain.Options{})
		if err != nil {
			panic(err) // broken schema, not bad data
		}
		fmt.Println(res.Summary, res.Current) // incomplete income
	}

Schemas can also be written as YAML or JSON documents (see ParseSchema and the
rowflow CLI).
*/
package rowflow
