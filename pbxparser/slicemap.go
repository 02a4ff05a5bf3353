package pbxparser

// SliceItem is one key/value pair of a SliceMap, in insertion order.
type SliceItem struct {
	key  string
	data interface{}
}

func (i SliceItem) Key() string {
	return i.key
}

func (i SliceItem) Value() interface{} {
	return i.data
}

// SliceMap is a map that remembers insertion order. Replacing the value of an
// existing key keeps its position.
type SliceMap struct {
	idx map[string]int
	sl  []*SliceItem
}

func NewSliceMap() *SliceMap {
	return &SliceMap{
		idx: make(map[string]int),
		sl:  make([]*SliceItem, 0),
	}
}

func (m *SliceMap) ForceGet(key string) interface{} {
	v, _ := m.Get(key)
	return v
}

func (m *SliceMap) Get(key string) (interface{}, bool) {
	i, found := m.idx[key]
	if !found {
		return nil, false
	}
	return m.sl[i].data, true
}

func (m *SliceMap) Set(key string, v interface{}) {
	if i, found := m.idx[key]; found {
		m.sl[i].data = v
		return
	}
	m.sl = append(m.sl, &SliceItem{key: key, data: v})
	m.idx[key] = len(m.sl) - 1
}

// InsertAt puts key at position i, shifting later items. An existing key
// only has its value replaced. i is clamped to [0, Size()].
func (m *SliceMap) InsertAt(i int, key string, v interface{}) {
	if j, found := m.idx[key]; found {
		m.sl[j].data = v
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(m.sl) {
		i = len(m.sl)
	}
	m.sl = append(m.sl, nil)
	copy(m.sl[i+1:], m.sl[i:])
	m.sl[i] = &SliceItem{key: key, data: v}
	for j := i; j < len(m.sl); j++ {
		m.idx[m.sl[j].key] = j
	}
}

func (m *SliceMap) Has(key string) bool {
	_, found := m.idx[key]
	return found
}

func (m *SliceMap) Delete(key string) {
	i, found := m.idx[key]
	if !found {
		return
	}
	m.DeleteAt(i)
}

func (m *SliceMap) DeleteAt(i int) {
	if i < 0 || i >= len(m.sl) {
		return
	}
	delete(m.idx, m.sl[i].key)
	m.sl = append(m.sl[:i], m.sl[i+1:]...)
	// positions after i moved down by one
	for j := i; j < len(m.sl); j++ {
		m.idx[m.sl[j].key] = j
	}
}

func (m *SliceMap) Size() int {
	return len(m.sl)
}

func (m *SliceMap) Items() []*SliceItem {
	return m.sl
}

func (m *SliceMap) Keys() []string {
	keys := make([]string, len(m.sl))
	for i, item := range m.sl {
		keys[i] = item.key
	}
	return keys
}
