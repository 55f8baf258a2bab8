/*
Package domain contains the core models of the rowflow validator.

It defines the schema that describes a questionnaire (an ordered list of
variables with skip and enabling logic), the row being validated, and the
result the engine produces for it. This package has no I/O and no
dependencies outside the standard library.

# Key Entities

  - Schema: ordered mapping of variable names to Variable definitions. The
    declaration order is the default flow.
  - Variable: type, constraints and flow-control metadata of one question.
  - Row: the recorded values, keyed by variable name.
  - Feedback: classification of a single variable.
  - Result: per-variable feedback plus the global summary of the row.
*/
package domain
