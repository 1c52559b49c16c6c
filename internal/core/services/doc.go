// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. The only external packages used
// are parsing helpers: gjson for lenient model-output coercion and
// jsonschema for describing the response contract to the model.
package services
