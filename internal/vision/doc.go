// Package vision classifies captured emulator frames against reference
// templates.
//
// Matching is zero-mean normalized cross correlation over the RGB channels
// (OpenCV's TM_CCOEFF_NORMED): every placement of the template inside the
// frame is scored in [-1, 1], and the global maximum is the confidence. Scale
// is fixed. Frames must be captured at the resolution the templates were cut
// from; a mismatch lowers confidence rather than failing.
//
// # Main Types
//
//   - [Template]: an immutable reference image with its match threshold
//   - [Library]: the set of templates loaded at startup
//   - [Classifier]: presence checks, raw scores and the ordered outcome scan
//   - [Matcher]: the scoring backend ([NCCMatcher] by default, OpenCV with -tags gocv)
//
// # Outcome Scan
//
// [Classifier.ScanForOutcome] walks its candidates in the order given and
// returns the first one whose confidence reaches its threshold. List the rare
// variant first: a frame that satisfies both templates resolves to the rare
// outcome.
//
// # Failure Handling
//
// A nil frame never matches. A template that is missing or failed to load is
// reported once through the logger and then simply never matches; other
// templates are unaffected.
package vision
