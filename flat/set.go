package flat

// Set is a flat hash set of 24-bit keys, sharing the Map bucket
// discipline.
type Set struct {
	m *Map[struct{}]
}

// NewSet returns a set that holds up to capacity keys.
func NewSet(capacity int) *Set {
	return &Set{m: NewMap[struct{}](capacity)}
}

func (me *Set) Len() int                 { return me.m.Len() }
func (me *Set) Empty() bool              { return me.m.Empty() }
func (me *Set) Capacity() int            { return me.m.Capacity() }
func (me *Set) Clear()                   { me.m.Clear() }
func (me *Set) Incl(key uint32) Note     { return me.m.Incl(key, struct{}{}) }
func (me *Set) Excl(key uint32) Note     { return me.m.Excl(key) }
func (me *Set) Contains(key uint32) bool { return me.m.Contains(key) }
func (me *Set) SizeBytes() int           { return me.m.SizeBytes() }

// ContainsAll reports whether every key of the slice is present.
func (me *Set) ContainsAll(keys []uint32) bool {
	if len(keys) > me.m.Len() {
		return false
	}
	for _, k := range keys {
		if !me.m.Contains(k) {
			return false
		}
	}
	return true
}

// Process visits every key in bucket order; a false return stops the walk.
func (me *Set) Process(fn func(key uint32) bool) bool {
	return me.m.Process(func(key uint32, _ *struct{}) bool { return fn(key) })
}
