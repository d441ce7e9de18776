// Package record defines the note record model shared by every other package.
//
// record imports nothing internal. The codec, index, repository and engine
// layers all build on these types.
//
// Key constraints:
//   - Status only moves forward: Pending → Analyzed → Archived
//   - Archived is terminal
//   - Annotation is set once, on the first transition into Analyzed
//   - CreatedAt is unix seconds, never a float
package record
