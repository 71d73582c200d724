// Package shape describes the structure of the data a card branch emits.
//
// A Node is one of four variants:
//   - Primitive: string, number or boolean
//   - Object: ordered named fields
//   - Array: a single member node
//   - Tuple: a fixed number of slots
//
// Nodes are built by card authors when declaring a branch's plug, attached to
// a card once and never mutated afterwards. Discrimination is a type switch
// on the variant; no sentinel keys live in user data.
package shape
