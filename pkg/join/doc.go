// Package join implements optimistic bundling: it joins the stream of published feeds
// with the stream of published instructions, and triggers a build whenever an
// instruction becomes satisfied or its bundle identity changes.
//
// The engine keeps an interest index (type → tag → layouts) so a feed publish only
// re-evaluates the instructions that name its tag.
//
// Evaluations for one asset type are serialized, and always read the registries at
// evaluation time: whichever evaluation runs last observes every publish that preceded
// it. The final identity of a layout thus depends only on the latest feed per tag and the
// latest instruction, never on arrival order.
package join
