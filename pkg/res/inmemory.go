package res

import "sort"

// InMemoryDict is a case-insensitive, always-writable backing container.
type InMemoryDict struct {
	data map[string][]byte
}

// NewInMemoryDict returns an empty InMemoryDict.
func NewInMemoryDict() *InMemoryDict {
	return &InMemoryDict{data: map[string][]byte{}}
}

func (d *InMemoryDict) Get(name string) ([]byte, bool, error) {
	key, err := canonicalOrError(name)
	if err != nil {
		return nil, false, err
	}
	b, ok := d.data[key]
	return b, ok, nil
}

func (d *InMemoryDict) Has(name string) bool {
	key, err := canonicalOrError(name)
	if err != nil {
		return false
	}
	_, ok := d.data[key]
	return ok
}

func (d *InMemoryDict) Names() []string {
	out := make([]string, 0, len(d.data))
	for k := range d.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (d *InMemoryDict) Len() int { return len(d.data) }

func (d *InMemoryDict) Writable() bool { return true }

func (d *InMemoryDict) Set(name string, data []byte) error {
	key, err := canonicalOrError(name)
	if err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	d.data[key] = cp
	return nil
}

func (d *InMemoryDict) Delete(name string) error {
	key, err := canonicalOrError(name)
	if err != nil {
		return err
	}
	delete(d.data, key)
	return nil
}

var _ WritableContainer = (*InMemoryDict)(nil)
