package flex

import "fmt"

// ScriptError wraps a Lua-side failure (a raised error or a traceback from
// a protected call) with the OSM entity that was being processed when it
// happened, matching teacher's exitWithError idiom of attaching the
// offending id to every propagated error.
type ScriptError struct {
	EntityKind string
	EntityID   uint64
	Traceback  string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("flex: script error processing %s %d: %s", e.EntityKind, e.EntityID, e.Traceback)
}

// errAttributeBeforeLayer is returned when a script calls Attribute (or
// AttributeNumeric/AttributeBoolean) before any Layer()/LayerAsCentroid()
// call has established a current output object (spec.md §4.7 edge case).
var errAttributeBeforeLayer = fmt.Errorf("flex: can't add Attribute if no Layer set")
