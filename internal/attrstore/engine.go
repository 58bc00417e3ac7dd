package attrstore

// Engine composes the three process-wide interning dictionaries described
// in spec.md §2: the key store, the pair store, and the set store. It is
// constructed once per conversion run and shared across all worker
// OsmProcessing instances, which intern into it concurrently while they
// run (each store does its own locking).
type Engine struct {
	Keys  *KeyStore
	Pairs *PairStore
	Sets  *Store
}

// NewEngine builds a fresh Engine with the empty set already installed at
// id 0 (transitively, via Store's constructor).
func NewEngine() *Engine {
	keys := NewKeyStore()
	return &Engine{
		Keys:  keys,
		Pairs: NewPairStore(keys),
		Sets:  NewStore(),
	}
}

// Builder accumulates pairs for a single output object before it is
// finalized into an AttributeSetID. OsmProcessing creates a new Builder
// for each Layer/LayerAsCentroid call.
type Builder struct {
	engine *Engine
	values []AttributePairIndex
}

// NewBuilder creates a Builder bound to engine.
func (e *Engine) NewBuilder() *Builder {
	return &Builder{engine: e}
}

// Reset clears the builder for reuse on the next entity, keeping the
// underlying slice's capacity.
func (b *Builder) Reset() { b.values = b.values[:0] }

// Len reports how many attributes have been added to the builder so far.
func (b *Builder) Len() int { return len(b.values) }

// AddString interns key and adds a string-valued pair. Per spec.md §4.7,
// empty string values are silently ignored.
func (b *Builder) AddString(key, value string, minzoom uint8) {
	if value == "" {
		return
	}
	b.add(key, String(value), minzoom)
}

// AddFloat interns key and adds a numeric-valued pair.
func (b *Builder) AddFloat(key string, value float64, minzoom uint8) {
	b.add(key, Float(value), minzoom)
}

// AddBool interns key and adds a boolean-valued pair.
func (b *Builder) AddBool(key string, value bool, minzoom uint8) {
	b.add(key, Bool(value), minzoom)
}

func (b *Builder) add(key string, v Value, minzoom uint8) {
	keyIdx := b.engine.Keys.Index(key)
	pairIdx := b.engine.Pairs.Add(Pair{KeyIndex: keyIdx, Value: v, MinZoom: minzoom})
	b.values = append(b.values, pairIdx)
}

// Finalize interns the accumulated pairs as a Set and returns its id. The
// builder is left ready for reuse (Reset is not implicit — callers that
// want to process another entity must call Reset themselves, matching the
// "collects outputs, finalizes them" per-entity lifecycle in spec.md §4.7).
func (b *Builder) Finalize() AttributeSetID {
	values := append([]AttributePairIndex(nil), b.values...)
	return b.engine.Sets.Add(Set{Values: values})
}
