// Package descriptor models the script-visible surface of a native class.
//
// A Descriptor maps exposed names to MemberInfo records (methods, properties
// and constructors), carries the optional event list and entry point, and
// holds one nested Descriptor per constructor target class:
//
//	Echo                      root class
//	├── echo        method
//	├── prefix      property (writable)
//	├── EchoObject  constructor ──► EchoObject descriptor
//	│                               ├── getValue  method
//	│                               └── count     property (static)
//	└── events: [tick]
//
// Descriptors are produced by the reflector package and are read-only after
// that. Lookups never mutate, so one descriptor tree can serve every
// extension instance concurrently.
package descriptor
